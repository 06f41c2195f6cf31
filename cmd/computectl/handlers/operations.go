package handlers

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/imamik/computectl/internal/operation"
)

type operationView struct {
	Name           string   `json:"name"`
	Traits         []string `json:"traits,omitempty"`
	MaxAttempts    int      `json:"maxAttempts"`
	BaseBackoff    string   `json:"baseBackoff"`
	MaxBackoff     string   `json:"maxBackoff"`
	IdempotencyTTL string   `json:"idempotencyTtl,omitempty"`
	RetryableCodes []string `json:"retryableCodes,omitempty"`
}

// ListOperations prints the operation descriptor table. It needs no
// credentials.
func ListOperations(g *Globals) error {
	format, err := outputFormat(g.Output)
	if err != nil {
		return err
	}
	table, err := operation.DefaultTable()
	if err != nil {
		return err
	}

	views := make([]operationView, 0, table.Len())
	for _, name := range table.Names() {
		d, err := table.Lookup(name)
		if err != nil {
			return err
		}
		v := operationView{
			Name:           d.Name,
			Traits:         traits(d),
			MaxAttempts:    d.MaxAttempts,
			BaseBackoff:    d.BaseBackoff.String(),
			MaxBackoff:     d.MaxBackoff.String(),
			RetryableCodes: d.RetryableErrorCodes(),
		}
		if d.IdempotencyTTL > 0 {
			v.IdempotencyTTL = d.IdempotencyTTL.String()
		}
		views = append(views, v)
	}

	return render(stdout, format, views, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "OPERATION\tTRAITS\tATTEMPTS\tBACKOFF\tRETRYABLE CODES")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s..%s\t%s\n", v.Name, dash(strings.Join(v.Traits, ",")),
				v.MaxAttempts, v.BaseBackoff, v.MaxBackoff, dash(strings.Join(v.RetryableCodes, ",")))
		}
	})
}

func traits(d operation.Descriptor) []string {
	var t []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{d.Mutating, "mutating"},
		{d.Idempotent, "idempotent"},
		{d.ReplaySafe, "replay-safe"},
		{d.Paginated, "paginated"},
		{d.LongRunning, "long-running"},
		{d.Batch, "batch"},
	} {
		if f.set {
			t = append(t, f.name)
		}
	}
	return t
}
