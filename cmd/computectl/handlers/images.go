package handlers

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/waiter"
)

// CreateImageOptions describe an image to take from an instance.
type CreateImageOptions struct {
	InstanceID  string
	Name        string
	Description string
	Tags        []string
	Wait        bool
}

// CopyImageOptions describe an image copy between regions.
type CopyImageOptions struct {
	SourceImageID string
	SourceRegion  string
	Name          string
	Description   string
	ClientToken   string
	Wait          bool
}

type imageView struct {
	ImageID string `json:"imageId"`
	State   string `json:"state,omitempty"`
	Polls   int    `json:"polls,omitempty"`
}

// ListImages prints all images matching opts.
func ListImages(ctx context.Context, g *Globals, opts ListOptions) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	filters, err := parseFilters(opts.Filters)
	if err != nil {
		return err
	}
	in := &compute.DescribeImagesInput{
		ImageIDs:   opts.IDs,
		Owners:     opts.Owners,
		Filters:    filters,
		MaxResults: opts.MaxResults,
	}
	pagerOpts, key, err := s.pagerOptions("images", opts, in)
	if err != nil {
		return err
	}

	p := compute.NewDescribeImagesPaginator(s.Compute, in, pagerOpts...)
	images, err := p.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	if err := s.finishListing(ctx, p.Cursor(), p.PageCount(), opts.Resume, key); err != nil {
		return err
	}
	images = orEmpty(images)

	return s.render(images, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tSTATE\tSOURCE\tREGION\tCREATED\tTAGS")
		for _, i := range images {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				i.ImageID, dash(i.Name), i.State, dash(i.SourceImageID), dash(i.Region),
				formatTime(i.CreationDate), formatTags(i.Tags))
		}
	})
}

// CreateImage images an instance. With Wait it blocks until the image is
// available; interrupting the wait leaves the image being created.
func CreateImage(ctx context.Context, g *Globals, opts CreateImageOptions) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	tags, err := parseTags(opts.Tags)
	if err != nil {
		return err
	}
	in := &compute.CreateImageInput{
		InstanceID:  opts.InstanceID,
		Name:        opts.Name,
		Description: opts.Description,
		Tags:        tags,
	}

	if !opts.Wait {
		out, err := s.Compute.CreateImage(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create image: %w", err)
		}
		s.logCall(in)
		return s.renderImage(imageView{ImageID: out.ImageID, State: compute.ImageStatePending})
	}

	var out *compute.CreateImageOutput
	res, err := s.runWait(ctx, "image "+opts.Name, compute.WaitImageAvailable, func(ctx context.Context, c *compute.Client) (waiter.Result, error) {
		var (
			res waiter.Result
			err error
		)
		out, res, err = c.CreateImageAndWait(ctx, in)
		return res, err
	})
	return s.finishImageWait(out, res, err)
}

// CopyImage copies an image into the configured region.
func CopyImage(ctx context.Context, g *Globals, opts CopyImageOptions) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	in := &compute.CopyImageInput{
		ClientToken:   opts.ClientToken,
		SourceImageID: opts.SourceImageID,
		SourceRegion:  opts.SourceRegion,
		Name:          opts.Name,
		Description:   opts.Description,
	}

	if !opts.Wait {
		out, err := s.Compute.CopyImage(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to copy image: %w", err)
		}
		s.logCall(in)
		return s.renderImage(imageView{ImageID: out.ImageID, State: compute.ImageStatePending})
	}

	var out *compute.CopyImageOutput
	res, err := s.runWait(ctx, "image "+opts.Name, compute.WaitImageAvailable, func(ctx context.Context, c *compute.Client) (waiter.Result, error) {
		var (
			res waiter.Result
			err error
		)
		out, res, err = c.CopyImageAndWait(ctx, in)
		return res, err
	})
	var created *compute.CreateImageOutput
	if out != nil {
		created = &compute.CreateImageOutput{ImageID: out.ImageID}
	}
	return s.finishImageWait(created, res, err)
}

// DeregisterImage deletes an image.
func DeregisterImage(ctx context.Context, g *Globals, imageID string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Compute.DeregisterImage(ctx, &compute.DeregisterImageInput{ImageID: imageID}); err != nil {
		return fmt.Errorf("failed to deregister image %s: %w", imageID, err)
	}
	return s.renderImage(imageView{ImageID: imageID, State: compute.ImageStateDeregistered})
}

func (s *Session) finishImageWait(out *compute.CreateImageOutput, res waiter.Result, err error) error {
	if out == nil {
		return fmt.Errorf("failed to start image: %w", err)
	}
	if rerr := s.renderImage(imageView{ImageID: out.ImageID, State: res.LastState, Polls: res.Polls}); rerr != nil {
		return rerr
	}
	if err != nil {
		return fmt.Errorf("image %s: %w", out.ImageID, err)
	}
	return nil
}

func (s *Session) renderImage(v imageView) error {
	return s.render(v, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tSTATE")
		fmt.Fprintf(w, "%s\t%s\n", v.ImageID, dash(v.State))
	})
}
