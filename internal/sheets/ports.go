package sheets

import (
	"context"
	"errors"

	"expensebuddy/internal/core"
)

var ErrRowNotFound = errors.New("row not found")

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionDeleter removes the row holding transaction id. It returns
	// ErrRowNotFound when no row matches.
	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, id string) error
	}

	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// Mirror is a sheet that follows the ledger's transactions.
	Mirror interface {
		TransactionWriter
		TransactionDeleter
		TransactionLister
	}
)
