// Package account holds per-client balance state and the read-only
// snapshot the engine hands to reporters.
package account

import (
	"github.com/xraph/clearing/types"
)

// Account is one client's balances. Available and Held never go negative;
// Total is derived and never stored.
type Account struct {
	types.Entity
	Client    uint16       `json:"client"`
	Available types.Amount `json:"available"`
	Held      types.Amount `json:"held"`
	Locked    bool         `json:"locked"`
}

// New opens an account with an initial available balance.
func New(client uint16, available types.Amount) *Account {
	return &Account{
		Entity:    types.NewEntity(),
		Client:    client,
		Available: available,
	}
}

// Total is Available + Held.
func (a *Account) Total() types.Amount {
	return a.Available.Add(a.Held)
}

// Clone returns an independent copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// Balance is a point-in-time, read-only view of an account.
type Balance struct {
	Client    uint16       `json:"client"`
	Available types.Amount `json:"available"`
	Held      types.Amount `json:"held"`
	Total     types.Amount `json:"total"`
	Locked    bool         `json:"locked"`
}

// Balance captures the account's current figures.
func (a *Account) Balance() Balance {
	return Balance{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// Snapshot is the final view of every known account, ordered by client id.
type Snapshot struct {
	balances []Balance
	index    map[uint16]int
}

// NewSnapshot builds a snapshot from balances already sorted by client id.
func NewSnapshot(sorted []Balance) Snapshot {
	index := make(map[uint16]int, len(sorted))
	for i, b := range sorted {
		index[b.Client] = i
	}
	return Snapshot{balances: sorted, index: index}
}

// Accounts returns a copy of all balances in client order.
func (s Snapshot) Accounts() []Balance {
	out := make([]Balance, len(s.balances))
	copy(out, s.balances)
	return out
}

// Get returns the balance for one client.
func (s Snapshot) Get(client uint16) (Balance, bool) {
	i, ok := s.index[client]
	if !ok {
		return Balance{}, false
	}
	return s.balances[i], true
}

// Len is the number of accounts.
func (s Snapshot) Len() int { return len(s.balances) }

// Each calls fn for every balance in client order until fn returns false.
func (s Snapshot) Each(fn func(Balance) bool) {
	for _, b := range s.balances {
		if !fn(b) {
			return
		}
	}
}
