// Package clearing replays a stream of client account events into final
// per-client balances.
//
// Clearing is a library first. The engine applies deposits, withdrawals,
// disputes, resolves and chargebacks one at a time in arrival order,
// keeps a history of monetary events for later reference, and reports
// the final state of every account.
//
// # Quick Start
//
//	store := memory.New()
//	e := clearing.New(store, clearing.WithLogger(logger))
//	if err := e.Start(ctx); err != nil {
//	    return err
//	}
//	defer e.Stop(ctx)
//
//	stats, err := e.Run(ctx, ingest.NewReader(file))
//	if err != nil {
//	    return err
//	}
//	report.NewWriter(os.Stdout).Write(e.Snapshot())
//
// # Rules
//
// A deposit opens an account the first time a client is seen. Every other
// event for an unknown client is rejected with ErrUnknownAccount.
//
// A withdrawal larger than the available balance is rejected with
// ErrInsufficientFunds. Disputes, resolves and chargebacks look up the
// referenced deposit or withdrawal in history and move its amount between
// available and held. When the source balance is short they move what
// there is, clamp at zero and emit a ClampNotice instead of failing.
// A chargeback always locks the account.
//
// A rejected event changes nothing: not the accounts, not the history.
//
// # Storage
//
// History backends live under history/: memory for a single run, bolt for
// an embedded file, sqlite via GORM, and mongo. All of them reject a
// second Record for the same event id with ErrDuplicateEvent.
//
// # Amounts
//
// Amounts are fixed-point decimals with four fractional digits. Values
// are never represented as floats.
package clearing
