package event

import "github.com/xraph/clearing/types"

// Row is the flat wire and storage shape of an Event. Amount is nil for
// reference kinds.
type Row struct {
	Kind   Kind          `json:"type"`
	Client uint16        `json:"client"`
	Tx     uint32        `json:"tx"`
	Amount *types.Amount `json:"amount,omitempty"`
}

// ToRow flattens an event.
func ToRow(ev Event) Row {
	r := Row{Kind: ev.Kind(), Client: ev.Client(), Tx: ev.Tx()}
	if m, ok := ev.(Monetary); ok {
		amt := m.Value()
		r.Amount = &amt
	}
	return r
}

// Event rebuilds the typed variant.
func (r Row) Event() (Event, error) {
	return New(r.Kind, r.Client, r.Tx, r.Amount)
}
