package testing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/keygen"
)

// FakeCloud is an in-memory compute service. Resources advance one lifecycle
// step each time a describe call returns them, after PendingPolls describes.
type FakeCloud struct {
	mu  sync.Mutex
	mux *transport.Mux

	instances     map[string]*fakeInstance
	instanceOrder []string
	images        map[string]*fakeImage
	imageOrder    []string
	keyPairs      map[string]compute.KeyPair
	regions       []compute.Region
	tokens        map[string]string

	pageSize        int
	pendingPolls    int
	imageFailReason string
	failures        map[string][]error
	lostResponses   map[string]int
	mutations       map[string]int
	calls           map[string]int
	requests        []transport.Request
	nextID          int
}

type fakeInstance struct {
	compute.Instance
	polls int
}

type fakeImage struct {
	compute.Image
	polls int
}

// FakeOption configures a FakeCloud.
type FakeOption func(*FakeCloud)

// WithPageSize sets the page size of describe calls.
func WithPageSize(n int) FakeOption {
	return func(f *FakeCloud) {
		f.pageSize = n
	}
}

// WithPendingPolls sets how many describe calls see a transitional state
// before it advances.
func WithPendingPolls(n int) FakeOption {
	return func(f *FakeCloud) {
		f.pendingPolls = n
	}
}

// WithImageFailure makes new images end in the failed state with reason.
func WithImageFailure(reason string) FakeOption {
	return func(f *FakeCloud) {
		f.imageFailReason = reason
	}
}

// NewFakeCloud creates an empty cloud with two regions.
func NewFakeCloud(opts ...FakeOption) *FakeCloud {
	f := &FakeCloud{
		instances:     map[string]*fakeInstance{},
		images:        map[string]*fakeImage{},
		keyPairs:      map[string]compute.KeyPair{},
		tokens:        map[string]string{},
		failures:      map[string][]error{},
		lostResponses: map[string]int{},
		mutations:     map[string]int{},
		calls:         map[string]int{},
		pageSize:      100,
		pendingPolls:  1,
		regions: []compute.Region{
			{Name: "fsn1", Description: "Falkenstein DC Park 1", NetworkZone: "eu-central"},
			{Name: "nbg1", Description: "Nuremberg DC Park 1", NetworkZone: "eu-central"},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.mux = transport.NewMux()
	f.mux.Handle(operation.RunInstances, transport.Typed(f.runInstances))
	f.mux.Handle(operation.DescribeInstances, transport.Typed(f.describeInstances))
	f.mux.Handle(operation.StartInstances, transport.Typed(f.stateChange(compute.InstanceStateStopped, compute.InstanceStatePending)))
	f.mux.Handle(operation.StopInstances, transport.Typed(f.stateChange(compute.InstanceStateRunning, compute.InstanceStateStopping)))
	f.mux.Handle(operation.RebootInstances, transport.Typed(f.stateChange(compute.InstanceStateRunning, compute.InstanceStateRunning)))
	f.mux.Handle(operation.TerminateInstances, transport.Typed(f.stateChange("", compute.InstanceStateShuttingDown)))
	f.mux.Handle(operation.CreateImage, transport.Typed(f.createImage))
	f.mux.Handle(operation.CopyImage, transport.Typed(f.copyImage))
	f.mux.Handle(operation.DescribeImages, transport.Typed(f.describeImages))
	f.mux.Handle(operation.DeregisterImage, transport.Typed(f.deregisterImage))
	f.mux.Handle(operation.CreateKeyPair, transport.Typed(f.createKeyPair))
	f.mux.Handle(operation.DeleteKeyPair, transport.Typed(f.deleteKeyPair))
	f.mux.Handle(operation.DescribeKeyPairs, transport.Typed(f.describeKeyPairs))
	f.mux.Handle(operation.DescribeRegions, transport.Typed(f.describeRegions))
	return f
}

// RoundTrip implements transport.Transport.
func (f *FakeCloud) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls[req.Operation]++
	f.requests = append(f.requests, *req)
	if queue := f.failures[req.Operation]; len(queue) > 0 {
		f.failures[req.Operation] = queue[1:]
		f.mu.Unlock()
		return nil, queue[0]
	}
	lose := f.lostResponses[req.Operation] > 0
	if lose {
		f.lostResponses[req.Operation]--
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := f.mux.RoundTrip(ctx, req)
	if err == nil && lose {
		return nil, ConnReset()
	}
	return resp, err
}

// FailNext queues errors returned, in order, by the next calls to op. The
// calls have no effect.
func (f *FakeCloud) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// LoseNextResponses applies the next n calls to op but answers them with a
// connection reset, as if the response got lost on the way back.
func (f *FakeCloud) LoseNextResponses(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lostResponses[op] += n
}

// Calls returns how many round trips reached op.
func (f *FakeCloud) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Mutations returns how many times op changed state.
func (f *FakeCloud) Mutations(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations[op]
}

// Requests returns a copy of every request seen.
func (f *FakeCloud) Requests() []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// AddInstance seeds an instance.
func (f *FakeCloud) AddInstance(inst compute.Instance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putInstance(inst)
}

// AddImage seeds an image.
func (f *FakeCloud) AddImage(img compute.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putImage(img)
}

// Instance returns the current state of an instance.
func (f *FakeCloud) Instance(id string) (compute.Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[id]
	if !ok {
		return compute.Instance{}, false
	}
	return inst.Instance, true
}

func (f *FakeCloud) putInstance(inst compute.Instance) {
	if _, ok := f.instances[inst.InstanceID]; !ok {
		f.instanceOrder = append(f.instanceOrder, inst.InstanceID)
	}
	f.instances[inst.InstanceID] = &fakeInstance{Instance: inst}
}

func (f *FakeCloud) putImage(img compute.Image) {
	if _, ok := f.images[img.ImageID]; !ok {
		f.imageOrder = append(f.imageOrder, img.ImageID)
	}
	f.images[img.ImageID] = &fakeImage{Image: img}
}

func (f *FakeCloud) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

func requestID(req *transport.Request) string {
	return fmt.Sprintf("req-%s-%d", strings.ToLower(req.Operation), req.Attempt)
}

func notFound(code, format string, args ...any) error {
	return RemoteError(400, code, fmt.Sprintf(format, args...))
}

// page slices ids by an offset token.
func (f *FakeCloud) page(ids []string, token string, maxResults int) ([]string, string, error) {
	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(ids) {
			return nil, "", RemoteError(400, "InvalidParameterValue", "invalid NextToken")
		}
		start = n
	}
	size := f.pageSize
	if maxResults > 0 && maxResults < size {
		size = maxResults
	}
	end := min(start+size, len(ids))
	next := ""
	if end < len(ids) {
		next = strconv.Itoa(end)
	}
	return ids[start:end], next, nil
}

func matches(tags map[string]string, state string, filters []compute.Filter) bool {
	for _, flt := range filters {
		var v string
		switch {
		case strings.HasPrefix(flt.Name, "tag:"):
			v = tags[strings.TrimPrefix(flt.Name, "tag:")]
		case flt.Name == "instance-state-name", flt.Name == "state":
			v = state
		default:
			continue
		}
		if !slices.Contains(flt.Values, v) {
			return false
		}
	}
	return true
}

func (f *FakeCloud) runInstances(_ context.Context, req *transport.Request, in *compute.RunInstancesInput) (*compute.RunInstancesOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.ImageID == "" {
		return nil, "", RemoteError(400, "MissingParameter", "ImageId is required")
	}
	if img, ok := f.images[in.ImageID]; !ok || img.State != compute.ImageStateAvailable {
		return nil, "", notFound("InvalidAMIID.NotFound", "image %s does not exist", in.ImageID)
	}

	tokenKey := operation.RunInstances + "/" + req.ClientToken
	if ids, ok := f.tokens[tokenKey]; ok && req.ClientToken != "" {
		out := &compute.RunInstancesOutput{}
		for _, id := range strings.Split(ids, ",") {
			out.Instances = append(out.Instances, f.instances[id].Instance)
		}
		return out, requestID(req), nil
	}

	count := max(in.Count, 1)
	out := &compute.RunInstancesOutput{}
	var ids []string
	for range count {
		inst := compute.Instance{
			InstanceID:   f.id("i"),
			ImageID:      in.ImageID,
			InstanceType: in.InstanceType,
			KeyName:      in.KeyName,
			State:        compute.InstanceStatePending,
			Region:       req.Region,
			LaunchTime:   time.Now().UTC(),
			Tags:         maps.Clone(in.Tags),
		}
		f.putInstance(inst)
		ids = append(ids, inst.InstanceID)
		out.Instances = append(out.Instances, inst)
	}
	if req.ClientToken != "" {
		f.tokens[tokenKey] = strings.Join(ids, ",")
	}
	f.mutations[operation.RunInstances]++
	return out, requestID(req), nil
}

func (f *FakeCloud) advanceInstance(inst *fakeInstance) {
	next := map[string]string{
		compute.InstanceStatePending:      compute.InstanceStateRunning,
		compute.InstanceStateStopping:     compute.InstanceStateStopped,
		compute.InstanceStateShuttingDown: compute.InstanceStateTerminated,
	}
	to, transitional := next[inst.State]
	if !transitional {
		return
	}
	inst.polls++
	if inst.polls > f.pendingPolls {
		inst.State = to
		inst.polls = 0
	}
}

func (f *FakeCloud) describeInstances(_ context.Context, req *transport.Request, in *compute.DescribeInstancesInput) (*compute.DescribeInstancesOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.InstanceIDs {
		if _, ok := f.instances[id]; !ok {
			return nil, "", notFound("InvalidInstanceID.NotFound", "instance %s does not exist", id)
		}
	}

	var ids []string
	for _, id := range f.instanceOrder {
		inst := f.instances[id]
		if len(in.InstanceIDs) > 0 && !slices.Contains(in.InstanceIDs, id) {
			continue
		}
		if !matches(inst.Tags, inst.State, in.Filters) {
			continue
		}
		ids = append(ids, id)
	}
	pageIDs, next, err := f.page(ids, in.NextToken, in.MaxResults)
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeInstancesOutput{NextToken: next}
	for _, id := range pageIDs {
		inst := f.instances[id]
		out.Instances = append(out.Instances, inst.Instance)
		f.advanceInstance(inst)
	}
	return out, requestID(req), nil
}

// stateChange builds a batch handler. from is the state the instance must be
// in, empty for any live state.
func (f *FakeCloud) stateChange(from, to string) func(context.Context, *transport.Request, *compute.InstanceStateChangeInput) (*compute.InstanceStateChangeOutput, string, error) {
	return func(_ context.Context, req *transport.Request, in *compute.InstanceStateChangeInput) (*compute.InstanceStateChangeOutput, string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(in.InstanceIDs) == 0 {
			return nil, "", RemoteError(400, "MissingParameter", "InstanceIds is required")
		}
		out := &compute.InstanceStateChangeOutput{}
		for _, id := range in.InstanceIDs {
			inst, ok := f.instances[id]
			switch {
			case !ok:
				out.Outcomes = append(out.Outcomes, transport.Failure(id, notFound("InvalidInstanceID.NotFound", "instance %s does not exist", id)))
			case from == "" && (inst.State == compute.InstanceStateTerminated || inst.State == compute.InstanceStateShuttingDown):
				out.Outcomes = append(out.Outcomes, transport.Outcome{ResourceID: id, PreviousState: inst.State, CurrentState: inst.State})
			case from != "" && inst.State != from:
				out.Outcomes = append(out.Outcomes, transport.Failure(id, RemoteError(400, "IncorrectInstanceState",
					fmt.Sprintf("instance %s is %s", id, inst.State))))
			default:
				prev := inst.State
				inst.State, inst.polls = to, 0
				f.mutations[req.Operation]++
				out.Outcomes = append(out.Outcomes, transport.Outcome{ResourceID: id, PreviousState: prev, CurrentState: to})
			}
		}
		return out, requestID(req), nil
	}
}

func (f *FakeCloud) createImage(_ context.Context, req *transport.Request, in *compute.CreateImageInput) (*compute.CreateImageOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[in.InstanceID]
	if !ok {
		return nil, "", notFound("InvalidInstanceID.NotFound", "instance %s does not exist", in.InstanceID)
	}
	img := compute.Image{
		ImageID:       f.id("img"),
		Name:          in.Name,
		Description:   in.Description,
		State:         compute.ImageStatePending,
		SourceImageID: inst.ImageID,
		Region:        inst.Region,
		CreationDate:  time.Now().UTC(),
		Tags:          maps.Clone(in.Tags),
	}
	f.putImage(img)
	f.mutations[operation.CreateImage]++
	return &compute.CreateImageOutput{ImageID: img.ImageID}, requestID(req), nil
}

func (f *FakeCloud) copyImage(_ context.Context, req *transport.Request, in *compute.CopyImageInput) (*compute.CopyImageOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.images[in.SourceImageID]
	if !ok {
		return nil, "", notFound("InvalidAMIID.NotFound", "image %s does not exist", in.SourceImageID)
	}
	tokenKey := operation.CopyImage + "/" + req.ClientToken
	if id, ok := f.tokens[tokenKey]; ok && req.ClientToken != "" {
		return &compute.CopyImageOutput{ImageID: id}, requestID(req), nil
	}
	img := compute.Image{
		ImageID:       f.id("img"),
		Name:          in.Name,
		Description:   in.Description,
		State:         compute.ImageStatePending,
		SourceImageID: src.ImageID,
		Region:        req.Region,
		CreationDate:  time.Now().UTC(),
	}
	f.putImage(img)
	if req.ClientToken != "" {
		f.tokens[tokenKey] = img.ImageID
	}
	f.mutations[operation.CopyImage]++
	return &compute.CopyImageOutput{ImageID: img.ImageID}, requestID(req), nil
}

func (f *FakeCloud) advanceImage(img *fakeImage) {
	if img.State != compute.ImageStatePending {
		return
	}
	img.polls++
	if img.polls <= f.pendingPolls {
		return
	}
	if f.imageFailReason != "" {
		img.State, img.StateReason = compute.ImageStateFailed, f.imageFailReason
		return
	}
	img.State = compute.ImageStateAvailable
}

func (f *FakeCloud) describeImages(_ context.Context, req *transport.Request, in *compute.DescribeImagesInput) (*compute.DescribeImagesOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.ImageIDs {
		if img, ok := f.images[id]; !ok || img.State == compute.ImageStateDeregistered {
			return nil, "", notFound("InvalidAMIID.NotFound", "image %s does not exist", id)
		}
	}

	var ids []string
	for _, id := range f.imageOrder {
		img := f.images[id]
		if img.State == compute.ImageStateDeregistered {
			continue
		}
		if len(in.ImageIDs) > 0 && !slices.Contains(in.ImageIDs, id) {
			continue
		}
		if !matches(img.Tags, img.State, in.Filters) {
			continue
		}
		ids = append(ids, id)
	}
	pageIDs, next, err := f.page(ids, in.NextToken, in.MaxResults)
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeImagesOutput{NextToken: next}
	for _, id := range pageIDs {
		img := f.images[id]
		out.Images = append(out.Images, img.Image)
		f.advanceImage(img)
	}
	return out, requestID(req), nil
}

func (f *FakeCloud) deregisterImage(_ context.Context, req *transport.Request, in *compute.DeregisterImageInput) (*compute.DeregisterImageOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[in.ImageID]
	if !ok || img.State == compute.ImageStateDeregistered {
		return nil, "", notFound("InvalidAMIID.NotFound", "image %s does not exist", in.ImageID)
	}
	img.State = compute.ImageStateDeregistered
	f.mutations[operation.DeregisterImage]++
	return &compute.DeregisterImageOutput{}, requestID(req), nil
}

func (f *FakeCloud) createKeyPair(_ context.Context, req *transport.Request, in *compute.CreateKeyPairInput) (*compute.CreateKeyPairOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keyPairs[in.KeyName]; ok {
		return nil, "", RemoteError(400, "InvalidKeyPair.Duplicate", fmt.Sprintf("key pair %s already exists", in.KeyName))
	}
	kp, err := keygen.Generate(in.KeyType)
	if err != nil {
		return nil, "", RemoteError(400, "InvalidParameterValue", err.Error())
	}
	pair := compute.KeyPair{
		KeyName:     in.KeyName,
		KeyPairID:   f.id("key"),
		KeyType:     kp.Type,
		Fingerprint: kp.Fingerprint,
		PublicKey:   string(kp.PublicKey),
		Tags:        maps.Clone(in.Tags),
	}
	f.keyPairs[in.KeyName] = pair
	f.mutations[operation.CreateKeyPair]++
	return &compute.CreateKeyPairOutput{KeyPair: pair, KeyMaterial: string(kp.PrivateKey)}, requestID(req), nil
}

func (f *FakeCloud) deleteKeyPair(_ context.Context, req *transport.Request, in *compute.DeleteKeyPairInput) (*compute.DeleteKeyPairOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, kp := range f.keyPairs {
		if name == in.KeyName || (in.KeyPairID != "" && kp.KeyPairID == in.KeyPairID) {
			delete(f.keyPairs, name)
			f.mutations[operation.DeleteKeyPair]++
		}
	}
	return &compute.DeleteKeyPairOutput{}, requestID(req), nil
}

func (f *FakeCloud) describeKeyPairs(_ context.Context, req *transport.Request, in *compute.DescribeKeyPairsInput) (*compute.DescribeKeyPairsOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &compute.DescribeKeyPairsOutput{}
	for _, name := range in.KeyNames {
		if _, ok := f.keyPairs[name]; !ok {
			return nil, "", notFound("InvalidKeyPair.NotFound", "key pair %s does not exist", name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(f.keyPairs)) {
		kp := f.keyPairs[name]
		if len(in.KeyNames) > 0 && !slices.Contains(in.KeyNames, name) {
			continue
		}
		if !matches(kp.Tags, "", in.Filters) {
			continue
		}
		out.KeyPairs = append(out.KeyPairs, kp)
	}
	return out, requestID(req), nil
}

func (f *FakeCloud) describeRegions(_ context.Context, req *transport.Request, in *compute.DescribeRegionsInput) (*compute.DescribeRegionsOutput, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &compute.DescribeRegionsOutput{}
	for _, r := range f.regions {
		if len(in.RegionNames) == 0 || slices.Contains(in.RegionNames, r.Name) {
			out.Regions = append(out.Regions, r)
		}
	}
	return out, requestID(req), nil
}
