package clearing

import (
	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/plugin"
	"github.com/xraph/clearing/types"
)

// Re-export common types for convenience so users don't have to import
// the types and account packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Balance is re-exported from account package.
type Balance = account.Balance

// Snapshot is re-exported from account package.
type Snapshot = account.Snapshot

// ClampNotice is re-exported from plugin package.
type ClampNotice = plugin.ClampNotice

// Re-export Amount constructors
var (
	Zero            = types.Zero
	Sum             = types.Sum
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
)
