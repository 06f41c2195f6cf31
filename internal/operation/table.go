package operation

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/computectl/internal/apierr"
)

//go:embed descriptors.yaml
var embeddedDescriptors []byte

// Table is an immutable set of descriptors indexed by operation name.
type Table struct {
	byName map[string]Descriptor
	names  []string
}

type fileDefaults struct {
	MaxAttempts         int           `yaml:"maxAttempts"`
	BaseBackoff         time.Duration `yaml:"baseBackoff"`
	MaxBackoff          time.Duration `yaml:"maxBackoff"`
	IdempotencyTTL      time.Duration `yaml:"idempotencyTTL"`
	RetryableErrorCodes []string      `yaml:"retryableErrorCodes"`
}

type fileDescriptor struct {
	Name                string        `yaml:"name"`
	Mutating            bool          `yaml:"mutating"`
	Idempotent          bool          `yaml:"idempotent"`
	ReplaySafe          bool          `yaml:"replaySafe"`
	Paginated           bool          `yaml:"paginated"`
	LongRunning         bool          `yaml:"longRunning"`
	Batch               bool          `yaml:"batch"`
	RetryableErrorCodes []string      `yaml:"retryableErrorCodes"`
	MaxAttempts         int           `yaml:"maxAttempts"`
	BaseBackoff         time.Duration `yaml:"baseBackoff"`
	MaxBackoff          time.Duration `yaml:"maxBackoff"`
	IdempotencyTTL      time.Duration `yaml:"idempotencyTTL"`
}

type file struct {
	Defaults   fileDefaults     `yaml:"defaults"`
	Operations []fileDescriptor `yaml:"operations"`
}

// LoadTable parses a descriptor data file. Fields left empty on an operation
// inherit the file's defaults block; retryable codes are merged.
func LoadTable(r io.Reader) (*Table, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse operation descriptors: %w", err)
	}
	return build(f)
}

func build(f file) (*Table, error) {
	t := &Table{byName: make(map[string]Descriptor, len(f.Operations))}
	for _, fd := range f.Operations {
		d := Descriptor{
			Name:           fd.Name,
			Mutating:       fd.Mutating,
			Idempotent:     fd.Idempotent,
			ReplaySafe:     fd.ReplaySafe,
			Paginated:      fd.Paginated,
			LongRunning:    fd.LongRunning,
			Batch:          fd.Batch,
			MaxAttempts:    firstNonZero(fd.MaxAttempts, f.Defaults.MaxAttempts),
			BaseBackoff:    firstNonZero(fd.BaseBackoff, f.Defaults.BaseBackoff),
			MaxBackoff:     firstNonZero(fd.MaxBackoff, f.Defaults.MaxBackoff),
			IdempotencyTTL: firstNonZero(fd.IdempotencyTTL, f.Defaults.IdempotencyTTL),
			retryableCodes: make(map[string]struct{}),
		}
		for _, c := range f.Defaults.RetryableErrorCodes {
			d.retryableCodes[c] = struct{}{}
		}
		for _, c := range fd.RetryableErrorCodes {
			d.retryableCodes[c] = struct{}{}
		}
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("invalid operation descriptor: %w", err)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate operation descriptor %q", d.Name)
		}
		t.byName[d.Name] = d
		t.names = append(t.names, d.Name)
	}
	slices.Sort(t.names)
	return t, nil
}

func firstNonZero[T comparable](v, fallback T) T {
	var zero T
	if v != zero {
		return v
	}
	return fallback
}

// Lookup returns the descriptor for name, or a ClientError/UnknownOperation.
func (t *Table) Lookup(name string) (Descriptor, error) {
	d, ok := t.byName[name]
	if !ok {
		return Descriptor{}, apierr.New(apierr.KindUnknownOperation, name, "operation is not in the descriptor table")
	}
	return d, nil
}

// Names returns every operation name in sorted order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of descriptors.
func (t *Table) Len() int {
	return len(t.names)
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return LoadTable(bytes.NewReader(embeddedDescriptors))
})

// DefaultTable returns the table built from the embedded descriptors.yaml.
// It is parsed once per process.
func DefaultTable() (*Table, error) {
	return defaultTable()
}

// MustDefaultTable is DefaultTable for package initialization paths.
func MustDefaultTable() *Table {
	t, err := DefaultTable()
	if err != nil {
		panic(err)
	}
	return t
}
