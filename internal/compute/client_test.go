package compute_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/dispatch"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/paginate"
	testutil "github.com/imamik/computectl/internal/testing"
	"github.com/imamik/computectl/internal/util/retry"
	"github.com/imamik/computectl/internal/waiter"
)

func newClient(cloud *testutil.FakeCloud, opts ...compute.Option) *compute.Client {
	d := dispatch.New(cloud,
		dispatch.WithRetryOptions(
			retry.WithInitialDelay(time.Millisecond),
			retry.WithMaxDelay(2*time.Millisecond),
			retry.WithJitter(retry.NoJitter),
		),
		dispatch.WithConfig(dispatch.Config{Region: "fsn1"}),
	)
	opts = append([]compute.Option{compute.WithWaiterTiming(time.Millisecond, 10)}, opts...)
	return compute.New(d, opts...)
}

func seedInstances(cloud *testutil.FakeCloud, n int) []string {
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("i-%02d", i)
		cloud.AddInstance(testutil.NewInstanceBuilder(ids[i]).Build())
	}
	return ids
}

func TestDescribeInstancesPaginator_VisitsEveryInstanceOnce(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithPageSize(2))
	want := seedInstances(cloud, 5)
	c := newClient(cloud)

	p := compute.NewDescribeInstancesPaginator(c, nil)
	var got []string
	for page, err := range p.Pages(testutil.TestContext(t)) {
		require.NoError(t, err)
		for _, inst := range page {
			got = append(got, inst.InstanceID)
		}
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 3, p.PageCount())
	assert.False(t, p.HasMorePages())
	assert.Equal(t, 3, cloud.Calls(operation.DescribeInstances))
}

func TestDescribeInstancesPaginator_ResumesFromCheckpoint(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithPageSize(2))
	want := seedInstances(cloud, 5)
	c := newClient(cloud)
	store := paginate.NewMemoryStore()
	ctx := testutil.TestContext(t)

	first := compute.NewDescribeInstancesPaginator(c, nil, paginate.WithCheckpoint(store, "instances"), paginate.WithPageLimit(1))
	items, err := first.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, first.Cursor().Exhausted)

	second := compute.NewDescribeInstancesPaginator(c, nil, paginate.WithCheckpoint(store, "instances"))
	rest, err := second.All(ctx)
	require.NoError(t, err)

	var got []string
	for _, inst := range append(items, rest...) {
		got = append(got, inst.InstanceID)
	}
	assert.Equal(t, want, got)
}

func TestDescribeInstancesPaginator_RetriesPageWithSameToken(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithPageSize(2))
	seedInstances(cloud, 3)
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	p := compute.NewDescribeInstancesPaginator(c, nil)
	_, err := p.NextPage(ctx)
	require.NoError(t, err)

	cloud.FailNext(operation.DescribeInstances, testutil.RemoteError(503, "Unavailable", "try again"))
	page, err := p.NextPage(ctx)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "i-02", page[0].InstanceID)

	reqs := cloud.Requests()
	last := reqs[len(reqs)-1].Input.(*compute.DescribeInstancesInput)
	failed := reqs[len(reqs)-2].Input.(*compute.DescribeInstancesInput)
	assert.Equal(t, "2", last.NextToken)
	assert.Equal(t, last.NextToken, failed.NextToken)
}

func TestDescribeInstances_FilterByTag(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddInstance(testutil.NewInstanceBuilder("i-web").WithTag("role", "web").Build())
	cloud.AddInstance(testutil.NewInstanceBuilder("i-db").WithTag("role", "db").Build())
	c := newClient(cloud)

	out, err := c.DescribeInstances(testutil.TestContext(t), &compute.DescribeInstancesInput{
		Filters: []compute.Filter{{Name: "tag:role", Values: []string{"db"}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Instances, 1)
	assert.Equal(t, "i-db", out.Instances[0].InstanceID)
}

func TestDescribeInstances_UnknownIDIsNotFound(t *testing.T) {
	t.Parallel()
	c := newClient(testutil.NewFakeCloud())

	_, err := c.DescribeInstances(testutil.TestContext(t), &compute.DescribeInstancesInput{InstanceIDs: []string{"i-missing"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrResourceNotFound))
	assert.Equal(t, "req-fake", apierr.RequestIDOf(err))
}

func TestRunInstances_LostResponseLaunchesOnce(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddImage(testutil.NewImageBuilder("img-base").Build())
	cloud.LoseNextResponses(operation.RunInstances, 2)
	c := newClient(cloud)

	in := &compute.RunInstancesInput{ImageID: "img-base", InstanceType: "cx22", Count: 2}
	out, err := c.RunInstances(testutil.TestContext(t), in)
	require.NoError(t, err)

	assert.Len(t, out.Instances, 2)
	assert.Equal(t, 3, cloud.Calls(operation.RunInstances))
	assert.Equal(t, 1, cloud.Mutations(operation.RunInstances))

	reqs := cloud.Requests()
	require.Len(t, reqs, 3)
	assert.NotEmpty(t, reqs[0].ClientToken)
	for _, r := range reqs {
		assert.Equal(t, reqs[0].ClientToken, r.ClientToken)
	}

	md, ok := c.Metadata(in)
	require.True(t, ok)
	assert.Equal(t, 3, md.Attempts)
	assert.Equal(t, "req-runinstances-3", md.RequestID)
}

func TestRunInstances_CallerTokenAnsweredFromTracker(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddImage(testutil.NewImageBuilder("img-base").Build())
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	first, err := c.RunInstances(ctx, &compute.RunInstancesInput{ClientToken: "tok-1", ImageID: "img-base", InstanceType: "cx22"})
	require.NoError(t, err)
	second, err := c.RunInstances(ctx, &compute.RunInstancesInput{ClientToken: "tok-1", ImageID: "img-base", InstanceType: "cx22"})
	require.NoError(t, err)

	assert.Equal(t, first.Instances[0].InstanceID, second.Instances[0].InstanceID)
	assert.Equal(t, 1, cloud.Calls(operation.RunInstances))

	_, err = c.RunInstances(ctx, &compute.RunInstancesInput{ClientToken: "tok-1", ImageID: "img-base", InstanceType: "cx32"})
	assert.True(t, apierr.IsKind(err, apierr.KindMisuse))
}

func TestCreateKeyPair_DuplicateNotRetried(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	out, err := c.CreateKeyPair(ctx, &compute.CreateKeyPairInput{KeyName: "ops"})
	require.NoError(t, err)
	assert.Contains(t, out.KeyMaterial, "PRIVATE KEY")
	assert.Equal(t, "ed25519", out.KeyPair.KeyType)

	_, err = c.CreateKeyPair(ctx, &compute.CreateKeyPairInput{KeyName: "ops"})
	require.Error(t, err)
	ce, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "InvalidKeyPair.Duplicate", ce.Code)
	assert.Equal(t, 2, cloud.Calls(operation.CreateKeyPair))

	kps, err := c.DescribeKeyPairs(ctx, nil)
	require.NoError(t, err)
	require.Len(t, kps.KeyPairs, 1)

	_, err = c.DeleteKeyPair(ctx, &compute.DeleteKeyPairInput{KeyName: "ops"})
	require.NoError(t, err)
	kps, err = c.DescribeKeyPairs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, kps.KeyPairs)
}

func TestCreateKeyPair_LostResponseNotReplayed(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.LoseNextResponses(operation.CreateKeyPair, 1)
	c := newClient(cloud)

	_, err := c.CreateKeyPair(testutil.TestContext(t), &compute.CreateKeyPairInput{KeyName: "ops"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindNetwork))
	assert.Equal(t, 1, cloud.Calls(operation.CreateKeyPair))
}

func TestCreateKeyPair_RefusedConnectionRetried(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.FailNext(operation.CreateKeyPair, testutil.ConnRefused())
	c := newClient(cloud)

	_, err := c.CreateKeyPair(testutil.TestContext(t), &compute.CreateKeyPairInput{KeyName: "ops"})
	require.NoError(t, err)
	assert.Equal(t, 2, cloud.Calls(operation.CreateKeyPair))
	assert.Equal(t, 1, cloud.Mutations(operation.CreateKeyPair))
}

func TestStartInstances_PartialSuccess(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddInstance(testutil.NewInstanceBuilder("i-stopped").WithState(compute.InstanceStateStopped).Build())
	cloud.AddInstance(testutil.NewInstanceBuilder("i-running").Build())
	c := newClient(cloud)

	out, err := c.StartInstances(testutil.TestContext(t), &compute.StartInstancesInput{
		InstanceIDs: []string{"i-stopped", "i-running", "i-missing"},
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 3)
	assert.True(t, out.Outcomes.Partial())
	assert.Equal(t, []string{"i-stopped"}, out.Outcomes.Succeeded().IDs())
	assert.Equal(t, []string{"i-running", "i-missing"}, out.Outcomes.Failed().IDs())

	assert.Equal(t, compute.InstanceStateStopped, out.Outcomes[0].PreviousState)
	assert.Equal(t, compute.InstanceStatePending, out.Outcomes[0].CurrentState)
	assert.Contains(t, out.Outcomes[1].Error, "IncorrectInstanceState")
	assert.Error(t, out.Outcomes.Err())
}

func TestTerminateInstances_RetriedAfterLostResponse(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	seedInstances(cloud, 2)
	cloud.LoseNextResponses(operation.TerminateInstances, 1)
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	out, err := c.TerminateInstances(ctx, &compute.TerminateInstancesInput{InstanceIDs: []string{"i-00", "i-01"}})
	require.NoError(t, err)
	assert.Equal(t, 2, cloud.Calls(operation.TerminateInstances))
	assert.Equal(t, 2, cloud.Mutations(operation.TerminateInstances))
	assert.False(t, out.Outcomes.Partial())

	res, err := c.WaitUntilInstanceTerminated(ctx, "i-00")
	require.NoError(t, err)
	assert.Equal(t, waiter.Succeeded, res.State)
	assert.Equal(t, compute.InstanceStateTerminated, res.LastState)
}

func TestWaitUntilInstanceRunning(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithPendingPolls(2))
	cloud.AddImage(testutil.NewImageBuilder("img-base").Build())
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	out, err := c.RunInstances(ctx, &compute.RunInstancesInput{ImageID: "img-base", InstanceType: "cx22"})
	require.NoError(t, err)

	res, err := c.WaitUntilInstanceRunning(ctx, out.Instances[0].InstanceID)
	require.NoError(t, err)
	assert.Equal(t, waiter.Succeeded, res.State)
	assert.Equal(t, 4, res.Polls)
}

func TestCreateImageAndWait(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddInstance(testutil.NewInstanceBuilder("i-00").Build())

	var events []waiter.Event
	c := newClient(cloud, compute.WithWaiterOptions(waiter.WithObserver(func(ev waiter.Event) {
		events = append(events, ev)
	})))

	out, res, err := c.CreateImageAndWait(testutil.TestContext(t), &compute.CreateImageInput{InstanceID: "i-00", Name: "golden"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ImageID)
	assert.Equal(t, waiter.Succeeded, res.State)
	assert.Equal(t, compute.ImageStateAvailable, res.LastState)
	assert.Equal(t, 3, res.Polls)
	require.Len(t, events, 3)
	assert.Equal(t, compute.ImageStatePending, events[0].Observation.State)
}

func TestCreateImageAndWait_ImageFails(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithImageFailure("disk read error"))
	cloud.AddInstance(testutil.NewInstanceBuilder("i-00").Build())
	c := newClient(cloud)

	_, res, err := c.CreateImageAndWait(testutil.TestContext(t), &compute.CreateImageInput{InstanceID: "i-00", Name: "golden"})
	require.Error(t, err)
	assert.Equal(t, waiter.Failed, res.State)

	var fe *waiter.FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "disk read error", fe.Reason)
	assert.Equal(t, compute.ImageStateFailed, fe.State)
}

func TestCreateImageAndWait_InitiateErrorSkipsPolling(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	c := newClient(cloud)

	out, res, err := c.CreateImageAndWait(testutil.TestContext(t), &compute.CreateImageInput{InstanceID: "i-missing"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 0, res.Polls)
	assert.Equal(t, 0, cloud.Calls(operation.DescribeImages))
}

func TestWaitUntilImageAvailable_TimesOut(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud(testutil.WithPendingPolls(100))
	cloud.AddImage(testutil.NewImageBuilder("img-slow").Pending().Build())
	c := newClient(cloud, compute.WithWaiterTiming(time.Millisecond, 3))

	res, err := c.WaitUntilImageAvailable(testutil.TestContext(t), "img-slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, waiter.ErrTimedOut)
	assert.Equal(t, waiter.TimedOut, res.State)
	assert.Equal(t, 3, res.Polls)
}

func TestWaitUntilImageAvailable_Cancelled(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddImage(testutil.NewImageBuilder("img-slow").Pending().Build())
	c := newClient(cloud, compute.WithWaiterTiming(time.Hour, 3))

	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	time.AfterFunc(10*time.Millisecond, cancel)

	res, err := c.WaitUntilImageAvailable(ctx, "img-slow")
	require.Error(t, err)
	assert.Equal(t, waiter.Cancelled, res.State)
	assert.True(t, apierr.IsKind(err, apierr.KindCancelled))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCopyImageAndWait_ResumesWithToken(t *testing.T) {
	t.Parallel()
	cloud := testutil.NewFakeCloud()
	cloud.AddImage(testutil.NewImageBuilder("img-src").Build())
	c := newClient(cloud)
	ctx := testutil.TestContext(t)

	in := &compute.CopyImageInput{ClientToken: "copy-1", SourceImageID: "img-src", SourceRegion: "fsn1", Name: "copy"}
	first, res, err := c.CopyImageAndWait(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, waiter.Succeeded, res.State)

	again, _, err := c.CopyImageAndWait(ctx, &compute.CopyImageInput{ClientToken: "copy-1", SourceImageID: "img-src", SourceRegion: "fsn1", Name: "copy"})
	require.NoError(t, err)
	assert.Equal(t, first.ImageID, again.ImageID)
	assert.Equal(t, 1, cloud.Mutations(operation.CopyImage))
}

func TestDescribeRegions(t *testing.T) {
	t.Parallel()
	c := newClient(testutil.NewFakeCloud())

	out, err := c.DescribeRegions(testutil.TestContext(t), &compute.DescribeRegionsInput{RegionNames: []string{"nbg1"}})
	require.NoError(t, err)
	require.Len(t, out.Regions, 1)
	assert.Equal(t, "eu-central", out.Regions[0].NetworkZone)
}

func TestClient_ConfigureAfterFirstCall(t *testing.T) {
	t.Parallel()
	c := newClient(testutil.NewFakeCloud())

	_, err := c.DescribeRegions(testutil.TestContext(t), nil)
	require.NoError(t, err)
	err = c.Dispatcher().Configure(dispatch.Config{Region: "nbg1"})
	assert.True(t, apierr.IsKind(err, apierr.KindMisuse))
}
