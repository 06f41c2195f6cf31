package compute

import (
	"context"
	"time"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/waiter"
)

// Waiter names, as used for timing estimates and logs.
const (
	WaitImageAvailable     = "ImageAvailable"
	WaitInstanceRunning    = "InstanceRunning"
	WaitInstanceTerminated = "InstanceTerminated"
)

func defaultWaitSpecs() map[string]waiter.Spec {
	return map[string]waiter.Spec{
		WaitImageAvailable: {
			Operation:      operation.DescribeImages,
			SuccessStates:  []string{ImageStateAvailable},
			FailureStates:  []string{ImageStateFailed, ImageStateError, ImageStateDeregistered},
			PollInterval:   15 * time.Second,
			MaxAttempts:    40,
			AcceptNotFound: true,
		},
		WaitInstanceRunning: {
			Operation:      operation.DescribeInstances,
			SuccessStates:  []string{InstanceStateRunning},
			FailureStates:  []string{InstanceStateShuttingDown, InstanceStateTerminated, InstanceStateStopping},
			PollInterval:   15 * time.Second,
			MaxAttempts:    40,
			AcceptNotFound: true,
		},
		WaitInstanceTerminated: {
			Operation:     operation.DescribeInstances,
			SuccessStates: []string{InstanceStateTerminated},
			FailureStates: []string{InstanceStatePending, InstanceStateStopping},
			PollInterval:  15 * time.Second,
			MaxAttempts:   40,
		},
	}
}

func (c *Client) waiter(name string) (*waiter.Waiter, error) {
	return waiter.New(c.waitSpecs[name], c.waitOpts...)
}

func (c *Client) finish(w *waiter.Waiter, res waiter.Result, err error) (waiter.Result, error) {
	c.d.RecordWait(w.Spec().Operation, string(res.State))
	return res, err
}

func (c *Client) pollImage(imageID string) waiter.PollFunc {
	return func(ctx context.Context) (waiter.Observation, error) {
		out, err := c.DescribeImages(ctx, &DescribeImagesInput{ImageIDs: []string{imageID}})
		if err != nil {
			return waiter.Observation{}, err
		}
		for _, img := range out.Images {
			if img.ImageID == imageID {
				return waiter.Observation{State: img.State, Reason: img.StateReason}, nil
			}
		}
		return waiter.Observation{}, apierr.Newf(apierr.KindResourceNotFound, operation.DescribeImages, "image %s not found", imageID)
	}
}

// pollInstance maps a vanished instance to goneState when it is non-empty.
func (c *Client) pollInstance(instanceID, goneState string) waiter.PollFunc {
	return func(ctx context.Context) (waiter.Observation, error) {
		out, err := c.DescribeInstances(ctx, &DescribeInstancesInput{InstanceIDs: []string{instanceID}})
		if err == nil {
			for _, inst := range out.Instances {
				if inst.InstanceID == instanceID {
					return waiter.Observation{State: inst.State, Reason: inst.StateReason}, nil
				}
			}
			err = apierr.Newf(apierr.KindResourceNotFound, operation.DescribeInstances, "instance %s not found", instanceID)
		}
		if goneState != "" && apierr.IsKind(err, apierr.KindResourceNotFound) {
			return waiter.Observation{State: goneState}, nil
		}
		return waiter.Observation{}, err
	}
}

// WaitUntilImageAvailable polls DescribeImages until the image is available.
func (c *Client) WaitUntilImageAvailable(ctx context.Context, imageID string) (waiter.Result, error) {
	w, err := c.waiter(WaitImageAvailable)
	if err != nil {
		return waiter.Result{}, err
	}
	res, err := w.Wait(ctx, c.pollImage(imageID))
	return c.finish(w, res, err)
}

// WaitUntilInstanceRunning polls DescribeInstances until the instance runs.
func (c *Client) WaitUntilInstanceRunning(ctx context.Context, instanceID string) (waiter.Result, error) {
	w, err := c.waiter(WaitInstanceRunning)
	if err != nil {
		return waiter.Result{}, err
	}
	res, err := w.Wait(ctx, c.pollInstance(instanceID, ""))
	return c.finish(w, res, err)
}

// WaitUntilInstanceTerminated polls DescribeInstances until the instance is
// terminated. An instance that no longer shows up counts as terminated.
func (c *Client) WaitUntilInstanceTerminated(ctx context.Context, instanceID string) (waiter.Result, error) {
	w, err := c.waiter(WaitInstanceTerminated)
	if err != nil {
		return waiter.Result{}, err
	}
	res, err := w.Wait(ctx, c.pollInstance(instanceID, InstanceStateTerminated))
	return c.finish(w, res, err)
}

// CreateImageAndWait starts an image and waits until it is available.
// Cancelling ctx stops the wait; the image keeps being created.
func (c *Client) CreateImageAndWait(ctx context.Context, in *CreateImageInput) (*CreateImageOutput, waiter.Result, error) {
	w, err := c.waiter(WaitImageAvailable)
	if err != nil {
		return nil, waiter.Result{}, err
	}
	var out *CreateImageOutput
	res, err := w.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.CreateImage(ctx, in)
		return err
	}, func(ctx context.Context) (waiter.Observation, error) {
		return c.pollImage(out.ImageID)(ctx)
	})
	res, err = c.finish(w, res, err)
	return out, res, err
}

// CopyImageAndWait copies an image and waits until the copy is available.
// Give in a ClientToken to make a retried CopyImageAndWait resume the same copy.
func (c *Client) CopyImageAndWait(ctx context.Context, in *CopyImageInput) (*CopyImageOutput, waiter.Result, error) {
	w, err := c.waiter(WaitImageAvailable)
	if err != nil {
		return nil, waiter.Result{}, err
	}
	var out *CopyImageOutput
	res, err := w.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.CopyImage(ctx, in)
		return err
	}, func(ctx context.Context) (waiter.Observation, error) {
		return c.pollImage(out.ImageID)(ctx)
	})
	res, err = c.finish(w, res, err)
	return out, res, err
}
