// Package event defines the ledger instructions the engine replays.
//
// Event is a closed sum type. Deposit and Withdrawal carry an amount;
// Dispute, Resolve and Chargeback carry only the id of the monetary event
// they refer to. Code outside this package cannot add variants, so a type
// switch over the five kinds is the full set.
package event

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/clearing/types"
)

var (
	ErrUnknownKind    = errors.New("event: unknown kind")
	ErrMissingAmount  = errors.New("event: amount required")
	ErrNegativeAmount = errors.New("event: negative amount")
)

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}
}

// ParseKind is case-insensitive and ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string { return string(k) }

// Monetary reports whether events of this kind carry an amount.
func (k Kind) Monetary() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Event is one ledger instruction for one client.
type Event interface {
	Kind() Kind
	Client() uint16
	// Tx is the event id. For reference events it is the id of the
	// Deposit or Withdrawal being referred to.
	Tx() uint32

	sealed()
}

// Monetary is an Event that moves money: Deposit or Withdrawal.
type Monetary interface {
	Event
	Value() types.Amount
}

// Reference is an Event that points at a prior Monetary event:
// Dispute, Resolve or Chargeback.
type Reference interface {
	Event
	Ref() uint32
}

type Deposit struct {
	ClientID uint16       `json:"client"`
	TxID     uint32       `json:"tx"`
	Amount   types.Amount `json:"amount"`
}

type Withdrawal struct {
	ClientID uint16       `json:"client"`
	TxID     uint32       `json:"tx"`
	Amount   types.Amount `json:"amount"`
}

type Dispute struct {
	ClientID uint16 `json:"client"`
	TxID     uint32 `json:"tx"`
}

type Resolve struct {
	ClientID uint16 `json:"client"`
	TxID     uint32 `json:"tx"`
}

type Chargeback struct {
	ClientID uint16 `json:"client"`
	TxID     uint32 `json:"tx"`
}

func (Deposit) Kind() Kind            { return KindDeposit }
func (e Deposit) Client() uint16      { return e.ClientID }
func (e Deposit) Tx() uint32          { return e.TxID }
func (e Deposit) Value() types.Amount { return e.Amount }
func (Deposit) sealed()               {}

func (Withdrawal) Kind() Kind            { return KindWithdrawal }
func (e Withdrawal) Client() uint16      { return e.ClientID }
func (e Withdrawal) Tx() uint32          { return e.TxID }
func (e Withdrawal) Value() types.Amount { return e.Amount }
func (Withdrawal) sealed()               {}

func (Dispute) Kind() Kind       { return KindDispute }
func (e Dispute) Client() uint16 { return e.ClientID }
func (e Dispute) Tx() uint32     { return e.TxID }
func (e Dispute) Ref() uint32    { return e.TxID }
func (Dispute) sealed()          {}

func (Resolve) Kind() Kind       { return KindResolve }
func (e Resolve) Client() uint16 { return e.ClientID }
func (e Resolve) Tx() uint32     { return e.TxID }
func (e Resolve) Ref() uint32    { return e.TxID }
func (Resolve) sealed()          {}

func (Chargeback) Kind() Kind       { return KindChargeback }
func (e Chargeback) Client() uint16 { return e.ClientID }
func (e Chargeback) Tx() uint32     { return e.TxID }
func (e Chargeback) Ref() uint32    { return e.TxID }
func (Chargeback) sealed()          {}

// New builds the variant for kind. amount is required for Deposit and
// Withdrawal and ignored for the reference kinds. The result is validated.
func New(kind Kind, client uint16, tx uint32, amount *types.Amount) (Event, error) {
	var ev Event
	switch kind {
	case KindDeposit, KindWithdrawal:
		if amount == nil {
			return nil, fmt.Errorf("%w: %s tx %d", ErrMissingAmount, kind, tx)
		}
		if kind == KindDeposit {
			ev = Deposit{ClientID: client, TxID: tx, Amount: *amount}
		} else {
			ev = Withdrawal{ClientID: client, TxID: tx, Amount: *amount}
		}
	case KindDispute:
		ev = Dispute{ClientID: client, TxID: tx}
	case KindResolve:
		ev = Resolve{ClientID: client, TxID: tx}
	case KindChargeback:
		ev = Chargeback{ClientID: client, TxID: tx}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := Validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Validate enforces the invariants every event must hold before it reaches
// an engine: monetary amounts are never negative.
func Validate(ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrUnknownKind)
	}
	if m, ok := ev.(Monetary); ok && m.Value().IsNegative() {
		return fmt.Errorf("%w: %s tx %d amount %s", ErrNegativeAmount, ev.Kind(), ev.Tx(), m.Value())
	}
	return nil
}

// Describe renders an event for logs: "deposit client=1 tx=1 amount=5.0000".
func Describe(ev Event) string {
	if m, ok := ev.(Monetary); ok {
		return fmt.Sprintf("%s client=%d tx=%d amount=%s", ev.Kind(), ev.Client(), ev.Tx(), m.Value())
	}
	return fmt.Sprintf("%s client=%d tx=%d", ev.Kind(), ev.Client(), ev.Tx())
}
