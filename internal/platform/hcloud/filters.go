package hcloud

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
)

func pageNumber(token string) (int, error) {
	if token == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 0, invalidID("page token", token)
	}
	return n, nil
}

func perPage(maxResults int) int {
	if maxResults <= 0 || maxResults > maxPerPage {
		return maxPerPage
	}
	return maxResults
}

// nextToken turns the response's pagination meta into a NextToken. The last
// page yields "".
func nextToken(resp *hcloud.Response) string {
	if resp == nil || resp.Meta.Pagination == nil || resp.Meta.Pagination.NextPage == 0 {
		return ""
	}
	return strconv.Itoa(resp.Meta.Pagination.NextPage)
}

// splitFilters separates tag filters from the state filter named stateName.
// Other filter names are ignored.
func splitFilters(filters []compute.Filter, stateName string) (map[string][]string, []string) {
	labels := map[string][]string{}
	var states []string
	for _, f := range filters {
		switch {
		case strings.HasPrefix(f.Name, "tag:"):
			key := strings.TrimPrefix(f.Name, "tag:")
			labels[key] = append(labels[key], f.Values...)
		case f.Name == stateName:
			states = append(states, f.Values...)
		}
	}
	return labels, states
}

// labelSelector builds a label selector string. Keys are sorted so the
// selector is stable; several values for one key become an "in" clause.
func labelSelector(labels map[string][]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	selectors := make([]string, 0, len(keys))
	for _, k := range keys {
		values := labels[k]
		switch len(values) {
		case 0:
			selectors = append(selectors, k)
		case 1:
			selectors = append(selectors, fmt.Sprintf("%s=%s", k, values[0]))
		default:
			selectors = append(selectors, fmt.Sprintf("%s in (%s)", k, strings.Join(values, ",")))
		}
	}
	return strings.Join(selectors, ",")
}

// matchesFilters applies filters locally, for lookups by ID.
func matchesFilters(labels map[string]string, state string, filters []compute.Filter) bool {
	for _, f := range filters {
		var v string
		switch {
		case strings.HasPrefix(f.Name, "tag:"):
			v = labels[strings.TrimPrefix(f.Name, "tag:")]
		case f.Name == "instance-state-name", f.Name == "state":
			v = state
		default:
			continue
		}
		if !slices.Contains(f.Values, v) {
			return false
		}
	}
	return true
}
