// Package diag keeps per-call diagnostic metadata out of band. The metadata of
// the most recent call made with a request value stays retrievable for a short
// time, keyed by that request value.
package diag

import (
	"reflect"
	"time"

	"k8s.io/apimachinery/pkg/util/cache"
	"k8s.io/utils/clock"
)

// DefaultTTL is how long metadata stays retrievable.
const DefaultTTL = 5 * time.Minute

// Metadata describes one completed call.
type Metadata struct {
	Operation  string
	RequestID  string
	StatusCode int
	Attempts   int
	Start      time.Time
	Duration   time.Duration
	// Failed is set when the call returned an error.
	Failed bool
}

// Store is safe for concurrent use.
type Store struct {
	cache *cache.Expiring
	ttl   time.Duration
}

// NewStore creates a store. A non-positive ttl selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	return NewStoreWithClock(ttl, clock.RealClock{})
}

// NewStoreWithClock is NewStore with an injected clock.
func NewStoreWithClock(ttl time.Duration, c clock.Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache.NewExpiringWithClock(c), ttl: ttl}
}

// Record stores md under req. Requests that cannot be map keys, such as
// structs holding slices passed by value, are skipped; pass a pointer to keep
// their metadata.
func (s *Store) Record(req any, md Metadata) bool {
	if !Keyable(req) {
		return false
	}
	s.cache.Set(req, md, s.ttl)
	return true
}

// Lookup returns the metadata recorded for req.
func (s *Store) Lookup(req any) (Metadata, bool) {
	if !Keyable(req) {
		return Metadata{}, false
	}
	v, ok := s.cache.Get(req)
	if !ok {
		return Metadata{}, false
	}
	return v.(Metadata), true
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Keyable reports whether req can key the store.
func Keyable(req any) bool {
	if req == nil {
		return false
	}
	return reflect.ValueOf(req).Comparable()
}
