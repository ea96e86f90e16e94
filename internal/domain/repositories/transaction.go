package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs functions inside database transactions. The
// transaction travels in the context, so repository calls made from fn
// automatically join it.
type TransactionManager interface {
	// ExecTx executes fn within a transaction, committing on nil and
	// rolling back on error
	ExecTx(ctx context.Context, fn TxFn) error
}
