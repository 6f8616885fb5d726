package sheets

import (
	"context"
	"time"
)

// Client is the positional value API of a remote spreadsheet.
//
// Ranges are A1 strings (see SheetRange, HeaderRange, RowRange). Values are
// returned as formatted strings; trailing empty cells may be omitted.
type Client interface {
	Values(ctx context.Context, a1 string) ([][]string, error)
	Append(ctx context.Context, a1 string, row []string) error
	Update(ctx context.Context, a1 string, rows [][]string) error
}

// Observer receives one call per remote operation. internal/metrics implements it.
type Observer interface {
	ObserveSheetCall(op string, err error, d time.Duration)
}

// Instrument wraps c so every call is reported to obs. A nil obs returns c unchanged.
func Instrument(c Client, obs Observer) Client {
	if obs == nil {
		return c
	}
	return instrumented{next: c, obs: obs, now: time.Now}
}

type instrumented struct {
	next Client
	obs  Observer
	now  func() time.Time
}

func (i instrumented) Values(ctx context.Context, a1 string) ([][]string, error) {
	start := i.now()
	rows, err := i.next.Values(ctx, a1)
	i.obs.ObserveSheetCall("values", err, i.now().Sub(start))
	return rows, err
}

func (i instrumented) Append(ctx context.Context, a1 string, row []string) error {
	start := i.now()
	err := i.next.Append(ctx, a1, row)
	i.obs.ObserveSheetCall("append", err, i.now().Sub(start))
	return err
}

func (i instrumented) Update(ctx context.Context, a1 string, rows [][]string) error {
	start := i.now()
	err := i.next.Update(ctx, a1, rows)
	i.obs.ObserveSheetCall("update", err, i.now().Sub(start))
	return err
}
