package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound occurs when a referenced user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidOperation indicates a business rule violation such as a
	// self-transfer or a non-positive amount.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInsufficientBalance occurs when the sender cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

const (
	// TypeFund records a balance increase with no originating sender.
	TypeFund = "FUND"
	// TypeTransfer records a balance movement between two users.
	TypeTransfer = "TRANSFER"

	// ActionCredit marks a transaction that increased the viewer's balance.
	ActionCredit = "CREDIT"
	// ActionDebit marks a transaction that decreased the viewer's balance.
	ActionDebit = "DEBIT"
)

// Party is the reduced user view attached to a transaction.
type Party struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Transaction is one immutable entry in the append-only ledger. Sender is
// nil for FUND entries since funding has no originating sender.
type Transaction struct {
	ID        int64
	Amount    decimal.Decimal
	Type      string
	Sender    *Party
	Recipient Party
	CreatedAt time.Time
}

// Entry is a transaction formatted from the viewing user's perspective.
type Entry struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Sender    *Party          `json:"sender"`
	Recipient Party           `json:"recipient"`
	Action    string          `json:"transactionAction"`
	CreatedAt time.Time       `json:"createdAt"`
}

// History is one page of a user's transaction history, newest first.
type History struct {
	Transactions []Entry `json:"transactions"`
	Total        int64   `json:"total"`
	TotalPages   int     `json:"totalPages"`
	CurrentPage  int     `json:"currentPage"`
}

// FundOutcome reports the committed result of a funding operation.
type FundOutcome struct {
	Balance     decimal.Decimal
	Transaction Transaction
}

// TransferOutcome reports the committed result of a transfer.
type TransferOutcome struct {
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
	Transaction      Transaction
}

// Store is the persistence primitive behind the ledger. Each method commits
// its balance mutations and the new transaction record as one atomic unit;
// a failure leaves neither applied.
type Store interface {
	Fund(ctx context.Context, userID int64, amount decimal.Decimal) (FundOutcome, error)
	Transfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (TransferOutcome, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Transaction, int64, error)
}
