package hcloud

import (
	"context"
	"maps"
	"slices"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
)

var imageStates = map[hcloud.ImageStatus]string{
	hcloud.ImageStatusCreating:  compute.ImageStatePending,
	hcloud.ImageStatusAvailable: compute.ImageStateAvailable,
}

func imageState(s hcloud.ImageStatus) string {
	if st, ok := imageStates[s]; ok {
		return st
	}
	return compute.ImageStatePending
}

func imageStatuses(states []string) []hcloud.ImageStatus {
	var out []hcloud.ImageStatus
	for status, st := range imageStates {
		if slices.Contains(states, st) {
			out = append(out, status)
		}
	}
	return out
}

func toImage(img *hcloud.Image) compute.Image {
	out := compute.Image{
		ImageID:      formatID(img.ID),
		Name:         img.Name,
		Description:  img.Description,
		State:        imageState(img.Status),
		CreationDate: img.Created,
		Tags:         maps.Clone(img.Labels),
	}
	// Snapshots have no name, only a description.
	if out.Name == "" {
		out.Name = img.Description
	}
	if img.CreatedFrom != nil {
		out.SourceImageID = formatID(img.CreatedFrom.ID)
	}
	if len(out.Tags) == 0 {
		out.Tags = nil
	}
	return out
}

// createImage snapshots a server. The image stays pending until the
// snapshot action finishes; callers wait with a waiter. Snapshots have no
// failed status, so the create_image action is remembered and consulted
// while the image is still creating.
func (t *Transport) createImage(ctx context.Context, _ *transport.Request, in *compute.CreateImageInput) (*compute.CreateImageOutput, string, error) {
	s, resp, err := t.getServer(ctx, in.InstanceID)
	if err != nil {
		return nil, requestID(resp), err
	}
	description := in.Name
	if in.Description != "" {
		description = in.Name + ": " + in.Description
	}
	result, resp, err := t.client.Server.CreateImage(ctx, s, &hcloud.ServerCreateImageOpts{
		Type:        hcloud.ImageTypeSnapshot,
		Description: hcloud.Ptr(description),
		Labels:      in.Tags,
	})
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	if result.Action != nil {
		t.imageActions.Store(result.Image.ID, result.Action.ID)
	}
	return &compute.CreateImageOutput{ImageID: formatID(result.Image.ID)}, requestID(resp), nil
}

// imageFailure reports why the snapshot of image id failed, once its
// create_image action ended in error. Finished actions are forgotten.
func (t *Transport) imageFailure(ctx context.Context, id int64) (string, bool, error) {
	v, ok := t.imageActions.Load(id)
	if !ok {
		return "", false, nil
	}
	action, resp, err := t.client.Action.GetByID(ctx, v.(int64))
	if err != nil {
		return "", false, apiError(resp, err)
	}
	if action == nil {
		t.imageActions.Delete(id)
		return "", false, nil
	}
	switch action.Status {
	case hcloud.ActionStatusError:
		t.imageActions.Delete(id)
		reason := action.ErrorMessage
		if action.ErrorCode != "" {
			reason = action.ErrorCode + ": " + reason
		}
		return reason, true, nil
	case hcloud.ActionStatusSuccess:
		t.imageActions.Delete(id)
	}
	return "", false, nil
}

// describeImage maps img, marking a snapshot whose action failed as failed.
// A nil img is a snapshot that vanished; it is reported only when its
// action failed.
func (t *Transport) describeImage(ctx context.Context, id int64, img *hcloud.Image) (*compute.Image, error) {
	if img != nil && img.Status != hcloud.ImageStatusCreating {
		t.imageActions.Delete(id)
		out := toImage(img)
		return &out, nil
	}
	reason, failed, err := t.imageFailure(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		if !failed {
			return nil, nil
		}
		return &compute.Image{ImageID: formatID(id), State: compute.ImageStateFailed, StateReason: reason}, nil
	}
	out := toImage(img)
	if failed {
		out.State = compute.ImageStateFailed
		out.StateReason = reason
	}
	return &out, nil
}

func (t *Transport) describeImages(ctx context.Context, _ *transport.Request, in *compute.DescribeImagesInput) (*compute.DescribeImagesOutput, string, error) {
	if len(in.ImageIDs) > 0 {
		out := &compute.DescribeImagesOutput{}
		var last *hcloud.Response
		for _, id := range in.ImageIDs {
			n, err := parseID("image", id)
			if err != nil {
				return nil, "", err
			}
			img, resp, err := t.client.Image.GetByID(ctx, n)
			last = resp
			if err != nil {
				return nil, requestID(resp), apiError(resp, err)
			}
			mapped, err := t.describeImage(ctx, n, img)
			if err != nil {
				return nil, requestID(resp), err
			}
			if mapped == nil {
				return nil, requestID(resp), notFound("image", id, resp)
			}
			if matchesFilters(mapped.Tags, mapped.State, in.Filters) {
				out.Images = append(out.Images, *mapped)
			}
		}
		return out, requestID(last), nil
	}

	page, err := pageNumber(in.NextToken)
	if err != nil {
		return nil, "", err
	}
	labels, states := splitFilters(in.Filters, "state")
	opts := hcloud.ImageListOpts{
		ListOpts: hcloud.ListOpts{Page: page, PerPage: perPage(in.MaxResults), LabelSelector: labelSelector(labels)},
		Type:     imageTypes(in.Owners),
	}
	if len(states) > 0 {
		opts.Status = imageStatuses(states)
		if len(opts.Status) == 0 {
			return &compute.DescribeImagesOutput{}, "", nil
		}
	}
	images, resp, err := t.client.Image.List(ctx, opts)
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	out := &compute.DescribeImagesOutput{NextToken: nextToken(resp)}
	for _, img := range images {
		mapped, err := t.describeImage(ctx, img.ID, img)
		if err != nil {
			return nil, requestID(resp), err
		}
		out.Images = append(out.Images, *mapped)
	}
	return out, requestID(resp), nil
}

// imageTypes maps owner filters: "self" lists snapshots, "system" the
// public operating system images. No owner means snapshots.
func imageTypes(owners []string) []hcloud.ImageType {
	if len(owners) == 0 {
		return []hcloud.ImageType{hcloud.ImageTypeSnapshot}
	}
	var types []hcloud.ImageType
	for _, o := range owners {
		switch o {
		case "self":
			types = append(types, hcloud.ImageTypeSnapshot, hcloud.ImageTypeBackup)
		case "system", "amazon":
			types = append(types, hcloud.ImageTypeSystem, hcloud.ImageTypeApp)
		}
	}
	return types
}

func (t *Transport) deregisterImage(ctx context.Context, _ *transport.Request, in *compute.DeregisterImageInput) (*compute.DeregisterImageOutput, string, error) {
	n, err := parseID("image", in.ImageID)
	if err != nil {
		return nil, "", err
	}
	resp, err := t.client.Image.Delete(ctx, &hcloud.Image{ID: n})
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	return &compute.DeregisterImageOutput{}, requestID(resp), nil
}
