package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/crypto/blake2b"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/paginate"
)

// Instance state changes accepted by ChangeInstances.
const (
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionReboot    = "reboot"
	ActionTerminate = "terminate"
)

// ListOptions narrow a listing.
type ListOptions struct {
	IDs        []string
	Filters    []string
	Owners     []string
	MaxResults int
	// Resume is a checkpoint key. The cursor is saved after every page so an
	// interrupted listing continues where it stopped.
	Resume   string
	MaxPages int
}

// RunOptions describe instances to launch.
type RunOptions struct {
	ImageID      string
	InstanceType string
	KeyName      string
	Count        int
	UserDataFile string
	Tags         []string
	ClientToken  string
	Wait         bool
}

// ListInstances prints all instances matching opts.
func ListInstances(ctx context.Context, g *Globals, opts ListOptions) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	filters, err := parseFilters(opts.Filters)
	if err != nil {
		return err
	}
	in := &compute.DescribeInstancesInput{
		InstanceIDs: opts.IDs,
		Filters:     filters,
		MaxResults:  opts.MaxResults,
	}
	pagerOpts, key, err := s.pagerOptions("instances", opts, in)
	if err != nil {
		return err
	}

	p := compute.NewDescribeInstancesPaginator(s.Compute, in, pagerOpts...)
	instances, err := p.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list instances: %w", err)
	}
	if err := s.finishListing(ctx, p.Cursor(), p.PageCount(), opts.Resume, key); err != nil {
		return err
	}

	instances = orEmpty(instances)
	return s.render(instances, instancesTable(instances))
}

// RunInstances launches instances and optionally waits until they run.
func RunInstances(ctx context.Context, g *Globals, opts RunOptions) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	tags, err := parseTags(opts.Tags)
	if err != nil {
		return err
	}
	in := &compute.RunInstancesInput{
		ClientToken:  opts.ClientToken,
		ImageID:      opts.ImageID,
		InstanceType: opts.InstanceType,
		KeyName:      opts.KeyName,
		Count:        opts.Count,
		Tags:         tags,
	}
	if opts.UserDataFile != "" {
		data, err := os.ReadFile(opts.UserDataFile)
		if err != nil {
			return fmt.Errorf("failed to read user data: %w", err)
		}
		in.UserData = string(data)
	}

	out, err := s.Compute.RunInstances(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to run instances: %w", err)
	}
	s.logCall(in)

	if opts.Wait {
		ids := make([]string, len(out.Instances))
		for i, inst := range out.Instances {
			ids[i] = inst.InstanceID
		}
		if err := s.waitAll(ctx, ids, compute.WaitInstanceRunning, (*compute.Client).WaitUntilInstanceRunning); err != nil {
			return fmt.Errorf("instances did not start: %w", err)
		}
		for i := range out.Instances {
			out.Instances[i].State = compute.InstanceStateRunning
		}
	}
	return s.render(out.Instances, instancesTable(out.Instances))
}

// ChangeInstances starts, stops, reboots or terminates instances. It prints
// one outcome per instance and fails when any of them failed.
func ChangeInstances(ctx context.Context, g *Globals, action string, ids []string, force, wait bool) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	in := &compute.InstanceStateChangeInput{InstanceIDs: ids, Force: force}
	var (
		out      *compute.InstanceStateChangeOutput
		waitName string
		waitFn   waitFunc
	)
	switch action {
	case ActionStart:
		out, err = s.Compute.StartInstances(ctx, in)
		waitName, waitFn = compute.WaitInstanceRunning, (*compute.Client).WaitUntilInstanceRunning
	case ActionStop:
		out, err = s.Compute.StopInstances(ctx, in)
	case ActionReboot:
		out, err = s.Compute.RebootInstances(ctx, in)
	case ActionTerminate:
		out, err = s.Compute.TerminateInstances(ctx, in)
		waitName, waitFn = compute.WaitInstanceTerminated, (*compute.Client).WaitUntilInstanceTerminated
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return fmt.Errorf("failed to %s instances: %w", action, err)
	}
	s.logCall(in)

	if wait && waitFn != nil {
		if ids := out.Outcomes.Succeeded().IDs(); len(ids) > 0 {
			if err := s.waitAll(ctx, ids, waitName, waitFn); err != nil {
				return err
			}
		}
	}

	if err := s.render(out.Outcomes, outcomesTable(out.Outcomes)); err != nil {
		return err
	}
	if failed := out.Outcomes.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d instances failed to %s: %w", len(failed), len(out.Outcomes), action, out.Outcomes.Err())
	}
	return nil
}

func instancesTable(instances []compute.Instance) func(w *tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tSTATE\tTYPE\tIMAGE\tPUBLIC IP\tREGION\tLAUNCHED\tTAGS")
		for _, i := range instances {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				i.InstanceID, i.State, dash(i.InstanceType), dash(i.ImageID), dash(i.PublicIP),
				dash(i.Region), formatTime(i.LaunchTime), formatTags(i.Tags))
		}
	}
}

// pagerOptions resolves the checkpoint and page limit flags. The checkpoint
// key is scoped by listing, provider, region and the query itself, so a
// continuation token is never replayed against a different query.
func (s *Session) pagerOptions(listing string, opts ListOptions, query any) ([]paginate.Option, string, error) {
	var (
		out []paginate.Option
		key string
	)
	if opts.Resume != "" {
		if s.Cursors == nil {
			return nil, "", fmt.Errorf("--resume needs a checkpoint backend (set checkpoint.backend in the configuration)")
		}
		digest, err := queryDigest(query)
		if err != nil {
			return nil, "", err
		}
		key = strings.Join([]string{listing, s.Config.Provider, s.Config.Region, opts.Resume, digest}, "/")
		out = append(out, paginate.WithCheckpoint(s.Cursors, key))
	}
	if opts.MaxPages > 0 {
		out = append(out, paginate.WithPageLimit(opts.MaxPages))
	}
	return out, key, nil
}

// queryDigest fingerprints a listing input with its continuation token unset.
func queryDigest(query any) (string, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to encode listing query: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// finishListing reports whether the listing can continue. The checkpoint of
// an exhausted listing is cleared so the next run with the same key starts
// over.
func (s *Session) finishListing(ctx context.Context, c paginate.Cursor, pages int, resume, key string) error {
	if !c.Exhausted {
		s.notePending(resume)
		return nil
	}
	if key == "" {
		return nil
	}
	if pages == 0 {
		fmt.Fprintf(stderr, "listing %s was already complete; starting over on the next run\n", resume)
	}
	if err := s.Cursors.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to clear checkpoint %s: %w", resume, err)
	}
	return nil
}

func (s *Session) notePending(resume string) {
	if resume != "" {
		fmt.Fprintf(stderr, "more results available; run again with --resume %s to continue\n", resume)
		return
	}
	fmt.Fprintln(stderr, "more results available; raise --max-pages or use --resume to continue")
}

// logCall logs the diagnostics of the last call made with input.
func (s *Session) logCall(input any) {
	md, ok := s.Compute.Metadata(input)
	if !ok {
		return
	}
	s.Logger.V(1).Info("call finished",
		"operation", md.Operation,
		"requestId", md.RequestID,
		"status", md.StatusCode,
		"attempts", md.Attempts,
		"duration", md.Duration)
}

// parseFilters parses name=v1,v2 pairs.
func parseFilters(specs []string) ([]compute.Filter, error) {
	var filters []compute.Filter
	for _, spec := range specs {
		name, values, ok := strings.Cut(spec, "=")
		if !ok || name == "" || values == "" {
			return nil, fmt.Errorf("invalid filter %q (want name=value[,value...])", spec)
		}
		filters = append(filters, compute.Filter{Name: name, Values: strings.Split(values, ",")})
	}
	return filters, nil
}
