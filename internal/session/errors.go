package session

import "errors"

// Session errors.
var (
	// ErrWalletAlreadyEvaluated is returned when the wallet is in the
	// evaluated set. It is a rejection, not a fault.
	ErrWalletAlreadyEvaluated = errors.New("wallet already evaluated")

	// ErrNoTransactions is returned when ingestion stored no transfers or
	// no stored transfer survived cleaning.
	ErrNoTransactions = errors.New("no transactions to analyze")

	// ErrSessionTimeout is the cancellation cause once the session deadline passes.
	ErrSessionTimeout = errors.New("session timeout exceeded")

	// ErrPanic wraps a recovered panic from a pipeline stage.
	ErrPanic = errors.New("pipeline panic")
)
