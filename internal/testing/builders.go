package testing

import (
	"maps"
	"time"

	"github.com/imamik/computectl/internal/compute"
)

// InstanceBuilder provides a fluent interface for seed instances.
// Each method returns a new builder (immutable) for chaining.
type InstanceBuilder struct {
	inst compute.Instance
}

// NewInstanceBuilder creates a running instance with sensible defaults.
func NewInstanceBuilder(id string) *InstanceBuilder {
	return &InstanceBuilder{inst: compute.Instance{
		InstanceID:   id,
		ImageID:      "img-base",
		InstanceType: "cx22",
		State:        compute.InstanceStateRunning,
		Region:       "fsn1",
		LaunchTime:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// WithState sets the instance state.
func (b *InstanceBuilder) WithState(state string) *InstanceBuilder {
	nb := b.clone()
	nb.inst.State = state
	return nb
}

// WithTag adds a tag.
func (b *InstanceBuilder) WithTag(key, value string) *InstanceBuilder {
	nb := b.clone()
	if nb.inst.Tags == nil {
		nb.inst.Tags = map[string]string{}
	}
	nb.inst.Tags[key] = value
	return nb
}

// WithImage sets the image the instance was launched from.
func (b *InstanceBuilder) WithImage(imageID string) *InstanceBuilder {
	nb := b.clone()
	nb.inst.ImageID = imageID
	return nb
}

// Build returns the instance.
func (b *InstanceBuilder) Build() compute.Instance {
	return b.clone().inst
}

func (b *InstanceBuilder) clone() *InstanceBuilder {
	nb := *b
	nb.inst.Tags = maps.Clone(b.inst.Tags)
	return &nb
}

// ImageBuilder provides a fluent interface for seed images.
type ImageBuilder struct {
	img compute.Image
}

// NewImageBuilder creates an available image with sensible defaults.
func NewImageBuilder(id string) *ImageBuilder {
	return &ImageBuilder{img: compute.Image{
		ImageID:      id,
		Name:         id,
		State:        compute.ImageStateAvailable,
		Region:       "fsn1",
		CreationDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// WithName sets the image name.
func (b *ImageBuilder) WithName(name string) *ImageBuilder {
	nb := b.clone()
	nb.img.Name = name
	return nb
}

// Pending marks the image as still being created.
func (b *ImageBuilder) Pending() *ImageBuilder {
	nb := b.clone()
	nb.img.State = compute.ImageStatePending
	return nb
}

// Available marks the image as available.
func (b *ImageBuilder) Available() *ImageBuilder {
	nb := b.clone()
	nb.img.State = compute.ImageStateAvailable
	return nb
}

// WithTag adds a tag.
func (b *ImageBuilder) WithTag(key, value string) *ImageBuilder {
	nb := b.clone()
	if nb.img.Tags == nil {
		nb.img.Tags = map[string]string{}
	}
	nb.img.Tags[key] = value
	return nb
}

// Build returns the image.
func (b *ImageBuilder) Build() compute.Image {
	return b.clone().img
}

func (b *ImageBuilder) clone() *ImageBuilder {
	nb := *b
	nb.img.Tags = maps.Clone(b.img.Tags)
	return &nb
}
