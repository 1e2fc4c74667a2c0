// Package report renders an account snapshot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xraph/clearing/account"
)

// Header is the first line of every CSV report.
var Header = []string{"client", "available", "held", "total", "locked"}

// Writer writes snapshots as CSV, one account per line in client order.
type Writer struct {
	w *csv.Writer
}

// NewWriter creates a Writer over dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(dst)}
}

// Write renders the header and every account in snap, then flushes.
func (w *Writer) Write(snap account.Snapshot) error {
	if err := w.w.Write(Header); err != nil {
		return fmt.Errorf("report: header: %w", err)
	}

	var err error
	snap.Each(func(b account.Balance) bool {
		err = w.w.Write(row(b))
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("report: row: %w", err)
	}

	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

func row(b account.Balance) []string {
	return []string{
		strconv.FormatUint(uint64(b.Client), 10),
		b.Available.String(),
		b.Held.String(),
		b.Total.String(),
		strconv.FormatBool(b.Locked),
	}
}
