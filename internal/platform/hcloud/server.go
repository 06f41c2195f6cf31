package hcloud

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
)

// instanceStates maps server status to instance state.
var instanceStates = map[hcloud.ServerStatus]string{
	hcloud.ServerStatusInitializing: compute.InstanceStatePending,
	hcloud.ServerStatusStarting:     compute.InstanceStatePending,
	hcloud.ServerStatusRunning:      compute.InstanceStateRunning,
	hcloud.ServerStatusStopping:     compute.InstanceStateStopping,
	hcloud.ServerStatusOff:          compute.InstanceStateStopped,
	hcloud.ServerStatusDeleting:     compute.InstanceStateShuttingDown,
	hcloud.ServerStatusMigrating:    compute.InstanceStatePending,
	hcloud.ServerStatusRebuilding:   compute.InstanceStatePending,
}

func instanceState(s hcloud.ServerStatus) string {
	if st, ok := instanceStates[s]; ok {
		return st
	}
	return compute.InstanceStatePending
}

// serverStatuses is the reverse of instanceStates, for state filters.
func serverStatuses(states []string) []hcloud.ServerStatus {
	var out []hcloud.ServerStatus
	for status, st := range instanceStates {
		for _, want := range states {
			if st == want {
				out = append(out, status)
			}
		}
	}
	return out
}

func toInstance(s *hcloud.Server) compute.Instance {
	inst := compute.Instance{
		InstanceID: formatID(s.ID),
		State:      instanceState(s.Status),
		LaunchTime: s.Created,
		Tags:       maps.Clone(s.Labels),
	}
	if s.Image != nil {
		inst.ImageID = formatID(s.Image.ID)
	}
	if s.ServerType != nil {
		inst.InstanceType = s.ServerType.Name
	}
	if s.Datacenter != nil && s.Datacenter.Location != nil {
		inst.Region = s.Datacenter.Location.Name
	}
	if s.PublicNet.IPv4.IP != nil {
		inst.PublicIP = s.PublicNet.IPv4.IP.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		inst.PrivateIP = s.PrivateNet[0].IP.String()
	}
	delete(inst.Tags, ClientTokenLabel)
	if len(inst.Tags) == 0 {
		inst.Tags = nil
	}
	return inst
}

// runInstances creates Count servers. A client token is stored as a label.
// Servers already carrying it count towards Count, so a retry after a
// partial create only creates the missing servers, under the same names.
func (t *Transport) runInstances(ctx context.Context, req *transport.Request, in *compute.RunInstancesInput) (*compute.RunInstancesOutput, string, error) {
	count := max(in.Count, 1)
	out := &compute.RunInstancesOutput{}
	taken := map[string]bool{}
	var lastResp *hcloud.Response

	if req.ClientToken != "" {
		existing, resp, err := t.client.Server.List(ctx, hcloud.ServerListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: ClientTokenLabel + "=" + req.ClientToken, PerPage: maxPerPage},
		})
		if err != nil {
			return nil, requestID(resp), apiError(resp, err)
		}
		lastResp = resp
		for _, s := range existing {
			taken[s.Name] = true
			out.Instances = append(out.Instances, toInstance(s))
		}
		if len(existing) >= count {
			t.logger.V(1).Info("client token already used, returning existing servers", "servers", len(existing))
			return out, requestID(resp), nil
		}
		if len(existing) > 0 {
			t.logger.V(1).Info("client token partially used, creating missing servers",
				"existing", len(existing), "count", count)
		}
	}

	opts, err := t.buildServerCreateOpts(ctx, req, in)
	if err != nil {
		return nil, "", err
	}

	missing := count - len(out.Instances)
	for i := 0; i < count && missing > 0; i++ {
		name := serverName(in, req.ClientToken, i, count)
		if taken[name] {
			continue
		}
		opts.Name = name
		res, resp, err := t.client.Server.Create(ctx, opts)
		lastResp = resp
		if err != nil {
			return nil, requestID(resp), apiError(resp, err)
		}
		out.Instances = append(out.Instances, toInstance(res.Server))
		missing--
	}
	return out, requestID(lastResp), nil
}

func (t *Transport) buildServerCreateOpts(ctx context.Context, req *transport.Request, in *compute.RunInstancesInput) (hcloud.ServerCreateOpts, error) {
	if in.ImageID == "" || in.InstanceType == "" {
		return hcloud.ServerCreateOpts{}, invalidID("image or instance type", in.ImageID+"/"+in.InstanceType)
	}
	image := &hcloud.Image{Name: in.ImageID}
	if id, err := strconv.ParseInt(in.ImageID, 10, 64); err == nil {
		image = &hcloud.Image{ID: id}
	}

	labels := maps.Clone(in.Tags)
	if req.ClientToken != "" {
		if labels == nil {
			labels = map[string]string{}
		}
		labels[ClientTokenLabel] = req.ClientToken
	}

	opts := hcloud.ServerCreateOpts{
		ServerType: &hcloud.ServerType{Name: in.InstanceType},
		Image:      image,
		UserData:   in.UserData,
		Labels:     labels,
	}
	if req.Region != "" {
		opts.Location = &hcloud.Location{Name: req.Region}
	}
	if in.KeyName != "" {
		key, resp, err := t.client.SSHKey.Get(ctx, in.KeyName)
		if err != nil {
			return opts, apiError(resp, err)
		}
		if key == nil {
			return opts, notFound("ssh key", in.KeyName, resp)
		}
		opts.SSHKeys = []*hcloud.SSHKey{key}
	}
	return opts, nil
}

func serverName(in *compute.RunInstancesInput, token string, i, count int) string {
	base := in.Tags["Name"]
	if base == "" {
		suffix := token
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		if suffix == "" {
			suffix = uuid.NewString()[:8]
		}
		base = "computectl-" + suffix
	}
	if count == 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, i+1)
}

func (t *Transport) describeInstances(ctx context.Context, _ *transport.Request, in *compute.DescribeInstancesInput) (*compute.DescribeInstancesOutput, string, error) {
	if len(in.InstanceIDs) > 0 {
		out := &compute.DescribeInstancesOutput{}
		var last *hcloud.Response
		for _, id := range in.InstanceIDs {
			s, resp, err := t.getServer(ctx, id)
			last = resp
			if err != nil {
				return nil, requestID(resp), err
			}
			if matchesFilters(s.Labels, instanceState(s.Status), in.Filters) {
				out.Instances = append(out.Instances, toInstance(s))
			}
		}
		return out, requestID(last), nil
	}

	page, err := pageNumber(in.NextToken)
	if err != nil {
		return nil, "", err
	}
	labels, states := splitFilters(in.Filters, "instance-state-name")
	opts := hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{Page: page, PerPage: perPage(in.MaxResults), LabelSelector: labelSelector(labels)},
	}
	if len(states) > 0 {
		opts.Status = serverStatuses(states)
		if len(opts.Status) == 0 {
			return &compute.DescribeInstancesOutput{}, "", nil
		}
	}
	servers, resp, err := t.client.Server.List(ctx, opts)
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	out := &compute.DescribeInstancesOutput{NextToken: nextToken(resp)}
	for _, s := range servers {
		out.Instances = append(out.Instances, toInstance(s))
	}
	return out, requestID(resp), nil
}

func (t *Transport) getServer(ctx context.Context, id string) (*hcloud.Server, *hcloud.Response, error) {
	n, err := parseID("instance", id)
	if err != nil {
		return nil, nil, err
	}
	s, resp, err := t.client.Server.GetByID(ctx, n)
	if err != nil {
		return nil, resp, apiError(resp, err)
	}
	if s == nil {
		return nil, resp, notFound("instance", id, resp)
	}
	return s, resp, nil
}

// serverAction runs one power action on a server and reports the state the
// instance moves to.
type serverAction func(ctx context.Context, s *hcloud.Server) (target string, resp *hcloud.Response, err error)

// batch applies action to every instance and collects per-instance outcomes.
// Only cancellation of ctx ends the batch early.
func (t *Transport) batch(ctx context.Context, in *compute.InstanceStateChangeInput, action serverAction) (*compute.InstanceStateChangeOutput, string, error) {
	if len(in.InstanceIDs) == 0 {
		return nil, "", invalidID("instance", "")
	}
	out := &compute.InstanceStateChangeOutput{}
	var reqID string
	for _, id := range in.InstanceIDs {
		if err := ctx.Err(); err != nil {
			return nil, reqID, err
		}
		s, resp, err := t.getServer(ctx, id)
		if resp != nil {
			reqID = requestID(resp)
		}
		if err != nil {
			out.Outcomes = append(out.Outcomes, transport.Failure(id, err))
			continue
		}
		prev := instanceState(s.Status)
		target, resp, err := action(ctx, s)
		if resp != nil {
			reqID = requestID(resp)
		}
		if err != nil {
			out.Outcomes = append(out.Outcomes, transport.Failure(id, apiError(resp, err)))
			continue
		}
		out.Outcomes = append(out.Outcomes, transport.Outcome{ResourceID: id, PreviousState: prev, CurrentState: target})
	}
	return out, reqID, nil
}

func (t *Transport) startInstances(ctx context.Context, _ *transport.Request, in *compute.StartInstancesInput) (*compute.StartInstancesOutput, string, error) {
	return t.batch(ctx, in, func(ctx context.Context, s *hcloud.Server) (string, *hcloud.Response, error) {
		if s.Status == hcloud.ServerStatusRunning || s.Status == hcloud.ServerStatusStarting {
			return instanceState(s.Status), nil, nil
		}
		_, resp, err := t.client.Server.Poweron(ctx, s)
		return compute.InstanceStatePending, resp, err
	})
}

func (t *Transport) stopInstances(ctx context.Context, _ *transport.Request, in *compute.StopInstancesInput) (*compute.StopInstancesOutput, string, error) {
	return t.batch(ctx, in, func(ctx context.Context, s *hcloud.Server) (string, *hcloud.Response, error) {
		if s.Status == hcloud.ServerStatusOff {
			return compute.InstanceStateStopped, nil, nil
		}
		var (
			resp *hcloud.Response
			err  error
		)
		if in.Force {
			_, resp, err = t.client.Server.Poweroff(ctx, s)
		} else {
			_, resp, err = t.client.Server.Shutdown(ctx, s)
		}
		return compute.InstanceStateStopping, resp, err
	})
}

func (t *Transport) rebootInstances(ctx context.Context, _ *transport.Request, in *compute.RebootInstancesInput) (*compute.RebootInstancesOutput, string, error) {
	return t.batch(ctx, in, func(ctx context.Context, s *hcloud.Server) (string, *hcloud.Response, error) {
		_, resp, err := t.client.Server.Reboot(ctx, s)
		return compute.InstanceStateRunning, resp, err
	})
}

// terminateInstances deletes servers. A server that is already gone counts
// as terminated.
func (t *Transport) terminateInstances(ctx context.Context, _ *transport.Request, in *compute.TerminateInstancesInput) (*compute.TerminateInstancesOutput, string, error) {
	out, reqID, err := t.batch(ctx, in, func(ctx context.Context, s *hcloud.Server) (string, *hcloud.Response, error) {
		if s.Status == hcloud.ServerStatusDeleting {
			return compute.InstanceStateShuttingDown, nil, nil
		}
		_, resp, err := t.client.Server.DeleteWithResult(ctx, s)
		if isNotFound(err) {
			return compute.InstanceStateTerminated, resp, nil
		}
		return compute.InstanceStateShuttingDown, resp, err
	})
	if err != nil {
		return nil, reqID, err
	}
	for i, o := range out.Outcomes {
		if o.Err != nil && isMissing(o.Err) {
			out.Outcomes[i] = transport.Outcome{ResourceID: o.ResourceID, PreviousState: compute.InstanceStateTerminated, CurrentState: compute.InstanceStateTerminated}
		}
	}
	return out, reqID, nil
}
