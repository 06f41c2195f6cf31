package hcloud

import (
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
)

func TestLabelSelector(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string][]string
		want   string
	}{
		{"empty", nil, ""},
		{"single", map[string][]string{"role": {"web"}}, "role=web"},
		{"sorted keys", map[string][]string{"b": {"2"}, "a": {"1"}}, "a=1,b=2"},
		{"several values", map[string][]string{"env": {"dev", "prod"}}, "env in (dev,prod)"},
		{"presence", map[string][]string{"managed": {}}, "managed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := labelSelector(tt.labels); got != tt.want {
				t.Errorf("labelSelector() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageNumber(t *testing.T) {
	if n, err := pageNumber(""); err != nil || n != 1 {
		t.Errorf("pageNumber(\"\") = %d, %v", n, err)
	}
	if n, err := pageNumber("3"); err != nil || n != 3 {
		t.Errorf("pageNumber(\"3\") = %d, %v", n, err)
	}
	for _, bad := range []string{"0", "-1", "abc"} {
		if _, err := pageNumber(bad); err == nil {
			t.Errorf("pageNumber(%q) should fail", bad)
		}
	}
}

func TestNextToken(t *testing.T) {
	if got := nextToken(nil); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
	resp := &hcloud.Response{Meta: hcloud.Meta{Pagination: &hcloud.Pagination{Page: 1, NextPage: 2}}}
	if got := nextToken(resp); got != "2" {
		t.Errorf("expected '2', got %q", got)
	}
	resp.Meta.Pagination.NextPage = 0
	if got := nextToken(resp); got != "" {
		t.Errorf("expected empty token on last page, got %q", got)
	}
}

func TestServerStatuses(t *testing.T) {
	got := serverStatuses([]string{compute.InstanceStateStopped})
	if len(got) != 1 || got[0] != hcloud.ServerStatusOff {
		t.Errorf("expected [off], got %v", got)
	}
	if got := serverStatuses([]string{"nonsense"}); len(got) != 0 {
		t.Errorf("expected no statuses, got %v", got)
	}
}

func TestPerPage(t *testing.T) {
	for in, want := range map[int]int{0: maxPerPage, 10: 10, 500: maxPerPage} {
		if got := perPage(in); got != want {
			t.Errorf("perPage(%d) = %d, want %d", in, got, want)
		}
	}
}
