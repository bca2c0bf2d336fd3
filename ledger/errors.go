package ledger

import "errors"

// Business-rule failures. Each one aborts the enclosing transaction and is
// returned to the caller as-is, never retried.
var (
	ErrInvalidAmount       = errors.New("invalid-amount")
	ErrInvalidDate         = errors.New("invalid-date(yyyy-mm-dd)")
	ErrInsufficientFunds   = errors.New("insufficient-funds")
	ErrInsufficientBalance = errors.New("insufficient-balance")
	ErrSourceNotFound      = errors.New("source-not-found")
	ErrExpenseNotFound     = errors.New("expense-not-found")
	ErrDebtNotFound        = errors.New("debt-not-found")
	ErrAmountExceedsDebt   = errors.New("amount-exceeds-remaining-debt")

	// ErrCorruptBalanceState means a refund found no slot to absorb it,
	// which can only happen if an earlier write violated the ledger
	// invariants. It is surfaced, never swallowed.
	ErrCorruptBalanceState = errors.New("corrupt-balance-state")
)
