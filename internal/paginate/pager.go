// Package paginate turns a token-continued listing operation into a lazy,
// restartable sequence of pages.
//
// A [Cursor] taken after page N and handed to a new [Pager] continues with the
// first item after page N, provided the remote collection did not change in
// between. Remote collections can mutate between pages; resumption is a
// best-effort guarantee, not a snapshot.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/go-logr/logr"
)

var (
	// ErrNoMorePages is returned by NextPage once the sequence is exhausted.
	ErrNoMorePages = errors.New("no more pages")
	// ErrRepeatedToken is returned when the service hands back the token that
	// was just sent, which would otherwise loop forever.
	ErrRepeatedToken = errors.New("service returned the same continuation token twice")
)

// Cursor is the resumable position of a pager. The zero value starts at the
// first page.
type Cursor struct {
	Token     string `json:"token,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// Spec tells the pager how to thread tokens through requests and responses.
type Spec[Req, Resp, Item any] struct {
	// SetToken returns req with its continuation token set. An empty token
	// requests the first page.
	SetToken func(req Req, token string) Req
	// Extract returns the page items and the next token, empty on the last page.
	Extract func(resp Resp) (items []Item, next string)
}

// Fetch performs one page call.
type Fetch[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

type options struct {
	cursor    *Cursor
	store     Store
	key       string
	pageLimit int
}

// Option configures a Pager.
type Option func(*options)

// WithCursor resumes from c.
func WithCursor(c Cursor) Option {
	return func(o *options) {
		o.cursor = &c
	}
}

// WithCheckpoint saves the cursor to store under key after every page and
// resumes from the stored cursor when no explicit cursor was given.
func WithCheckpoint(store Store, key string) Option {
	return func(o *options) {
		o.store = store
		o.key = key
	}
}

// WithPageLimit stops the pager after n pages in this run. The cursor keeps
// the position so a later pager can carry on.
func WithPageLimit(n int) Option {
	return func(o *options) {
		o.pageLimit = n
	}
}

// Pager iterates the pages of one listing request. It is not safe for
// concurrent use.
type Pager[Req, Resp, Item any] struct {
	fetch  Fetch[Req, Resp]
	req    Req
	spec   Spec[Req, Resp, Item]
	opts   options
	cursor Cursor
	pages  int
	loaded bool
}

// New creates a pager for req.
func New[Req, Resp, Item any](fetch Fetch[Req, Resp], req Req, spec Spec[Req, Resp, Item], opts ...Option) *Pager[Req, Resp, Item] {
	p := &Pager[Req, Resp, Item]{fetch: fetch, req: req, spec: spec}
	for _, opt := range opts {
		opt(&p.opts)
	}
	if p.opts.cursor != nil {
		p.cursor = *p.opts.cursor
		p.loaded = true
	}
	if p.opts.store == nil {
		p.loaded = true
	}
	return p
}

// Cursor returns the current position.
func (p *Pager[Req, Resp, Item]) Cursor() Cursor {
	return p.cursor
}

// PageCount returns how many pages this pager fetched.
func (p *Pager[Req, Resp, Item]) PageCount() int {
	return p.pages
}

// HasMorePages reports whether NextPage may be called in this run. It turns
// false at the page limit even when Cursor is not exhausted. Before the first
// NextPage on a checkpointed pager it is optimistic; the stored cursor is
// read lazily.
func (p *Pager[Req, Resp, Item]) HasMorePages() bool {
	if p.opts.pageLimit > 0 && p.pages >= p.opts.pageLimit {
		return false
	}
	return !p.cursor.Exhausted
}

// NextPage fetches the next page.
func (p *Pager[Req, Resp, Item]) NextPage(ctx context.Context) ([]Item, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	if !p.HasMorePages() {
		return nil, ErrNoMorePages
	}

	sent := p.cursor.Token
	resp, err := p.fetch(ctx, p.spec.SetToken(p.req, sent))
	if err != nil {
		return nil, err
	}
	items, next := p.spec.Extract(resp)
	if next != "" && next == sent {
		return nil, fmt.Errorf("%w: %q", ErrRepeatedToken, next)
	}

	p.cursor = Cursor{Token: next, Exhausted: next == ""}
	p.pages++
	logr.FromContextOrDiscard(ctx).V(1).Info("fetched page", "page", p.pages, "items", len(items), "more", !p.cursor.Exhausted)

	if p.opts.store != nil {
		if err := p.opts.store.Save(ctx, p.opts.key, p.cursor); err != nil {
			return items, fmt.Errorf("failed to checkpoint cursor %q: %w", p.opts.key, err)
		}
	}
	return items, nil
}

func (p *Pager[Req, Resp, Item]) load(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	c, ok, err := p.opts.store.Load(ctx, p.opts.key)
	if err != nil {
		return fmt.Errorf("failed to load cursor %q: %w", p.opts.key, err)
	}
	if ok {
		p.cursor = c
	}
	p.loaded = true
	return nil
}

// All collects the items of every remaining page.
func (p *Pager[Req, Resp, Item]) All(ctx context.Context) ([]Item, error) {
	var all []Item
	for items, err := range p.Pages(ctx) {
		if err != nil {
			return all, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// Pages yields the remaining pages lazily, one call per page. Iteration stops
// after the first error.
func (p *Pager[Req, Resp, Item]) Pages(ctx context.Context) iter.Seq2[[]Item, error] {
	return func(yield func([]Item, error) bool) {
		if err := p.load(ctx); err != nil {
			yield(nil, err)
			return
		}
		for p.HasMorePages() {
			items, err := p.NextPage(ctx)
			if !yield(items, err) || err != nil {
				return
			}
		}
	}
}
