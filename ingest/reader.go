// Package ingest reads event rows from CSV.
//
// The expected layout is a header line "type,client,tx,amount" followed by
// one event per line. Whitespace around fields is ignored and reference
// events may omit the amount column. Rows that cannot be turned into an
// event are logged and skipped unless the reader is strict.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/types"
)

// ErrMalformedRow wraps every row-level problem.
var ErrMalformedRow = errors.New("ingest: malformed row")

// record is one raw CSV row before conversion.
type record struct {
	Type   string `validate:"required,oneof=deposit withdrawal dispute resolve chargeback"`
	Client string `validate:"required,number"`
	Tx     string `validate:"required,number"`
	Amount string `validate:"omitempty,numeric"`
}

// RowError describes a row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("ingest: line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() []error { return []error{ErrMalformedRow, e.Err} }

// Reader turns CSV rows into events. It satisfies the engine's Source
// interface.
type Reader struct {
	csv      *csv.Reader
	validate *validator.Validate
	logger   *slog.Logger
	strict   bool

	started bool
	read    int
	skipped int
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for skipped rows.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// WithStrict makes Next return a *RowError instead of skipping the row.
func WithStrict(strict bool) Option {
	return func(r *Reader) { r.strict = strict }
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	c := csv.NewReader(src)
	c.TrimLeadingSpace = true
	c.FieldsPerRecord = -1
	c.ReuseRecord = true

	r := &Reader{
		csv:      c,
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns the number of events produced so far.
func (r *Reader) Read() int { return r.read }

// Skipped returns the number of malformed rows dropped so far.
func (r *Reader) Skipped() int { return r.skipped }

// Next returns the next well-formed event, or io.EOF at end of input.
func (r *Reader) Next(ctx context.Context) (event.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if rerr := r.malformed(parseErr.Line, parseErr.Err); rerr != nil {
				return nil, rerr
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read: %w", err)
		}

		line, _ := r.csv.FieldPos(0)

		if !r.started {
			r.started = true
			if isHeader(fields) {
				continue
			}
		}
		if isBlank(fields) {
			continue
		}

		ev, err := r.convert(fields)
		if err != nil {
			if rerr := r.malformed(line, err); rerr != nil {
				return nil, rerr
			}
			continue
		}

		r.read++
		return ev, nil
	}
}

func (r *Reader) malformed(line int, err error) error {
	r.skipped++
	rowErr := &RowError{Line: line, Err: err}
	if r.strict {
		return rowErr
	}
	r.logger.Warn("skipping malformed row", "line", line, "error", err)
	return nil
}

func (r *Reader) convert(fields []string) (event.Event, error) {
	if len(fields) < 3 || len(fields) > 4 {
		return nil, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}

	rec := record{
		Type:   strings.ToLower(strings.TrimSpace(fields[0])),
		Client: strings.TrimSpace(fields[1]),
		Tx:     strings.TrimSpace(fields[2]),
	}
	if len(fields) == 4 {
		rec.Amount = strings.TrimSpace(fields[3])
	}

	if err := r.validate.Struct(rec); err != nil {
		return nil, describe(err)
	}

	client, err := strconv.ParseUint(rec.Client, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", rec.Client, err)
	}
	tx, err := strconv.ParseUint(rec.Tx, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("tx %q: %w", rec.Tx, err)
	}

	var amount *types.Amount
	if rec.Amount != "" {
		a, err := types.ParseAmount(rec.Amount)
		if err != nil {
			return nil, err
		}
		amount = &a
	}

	return event.New(event.Kind(rec.Type), uint16(client), uint32(tx), amount)
}

// describe flattens validator errors into one message naming each field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s (%q)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func isHeader(fields []string) bool {
	return len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "type")
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
