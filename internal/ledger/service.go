package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/paystream/paystream/internal/user"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// Service is the ledger core. It is the only component that mutates
// balances or appends transaction records, and it does both through a
// single atomic Store commit per operation.
type Service struct {
	users user.Repository
	store Store
}

// NewService builds a ledger service from a user directory and a store.
func NewService(users user.Repository, store Store) *Service {
	return &Service{users: users, store: store}
}

// Fund atomically increments the user's balance and appends a FUND
// transaction. Returns the new balance.
func (s *Service) Fund(ctx context.Context, userID int64, amount decimal.Decimal) (FundOutcome, error) {
	if !amount.IsPositive() {
		return FundOutcome{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidOperation)
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return FundOutcome{}, ErrNotFound
		}
		return FundOutcome{}, err
	}

	return s.store.Fund(ctx, userID, amount)
}

// Transfer atomically moves amount from sender to recipient and appends a
// single TRANSFER transaction linking the two. Preconditions are checked in
// order; the first failure wins and nothing is applied.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (TransferOutcome, error) {
	if senderID == recipientID {
		return TransferOutcome{}, fmt.Errorf("%w: cannot send money to yourself", ErrInvalidOperation)
	}
	if !amount.IsPositive() {
		return TransferOutcome{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidOperation)
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TransferOutcome{}, fmt.Errorf("sender %w", ErrNotFound)
		}
		return TransferOutcome{}, err
	}
	if _, err := s.users.FindByID(ctx, recipientID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TransferOutcome{}, fmt.Errorf("recipient %w", ErrNotFound)
		}
		return TransferOutcome{}, err
	}

	if sender.Balance.LessThan(amount) {
		return TransferOutcome{}, ErrInsufficientBalance
	}

	// The store re-verifies the balance under its own lock, so a stale read
	// here can never produce a lost update or a negative balance.
	return s.store.Transfer(ctx, senderID, recipientID, amount)
}

// History returns one page of the user's transactions, newest first, each
// formatted from the viewer's perspective.
func (s *Service) History(ctx context.Context, userID int64, page, pageSize int) (History, error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return History{}, ErrNotFound
		}
		return History{}, err
	}

	offset := (page - 1) * pageSize
	transactions, total, err := s.store.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return History{}, err
	}

	entries := make([]Entry, 0, len(transactions))
	for _, tx := range transactions {
		entries = append(entries, formatTransaction(userID, tx))
	}

	return History{
		Transactions: entries,
		Total:        total,
		TotalPages:   int(math.Ceil(float64(total) / float64(pageSize))),
		CurrentPage:  page,
	}, nil
}

// formatTransaction derives the viewer-relative action: CREDIT when the
// viewer received the funds, DEBIT otherwise.
func formatTransaction(viewerID int64, tx Transaction) Entry {
	action := ActionDebit
	if tx.Recipient.ID == viewerID {
		action = ActionCredit
	}
	return Entry{
		ID:        tx.ID,
		Amount:    tx.Amount,
		Type:      tx.Type,
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Action:    action,
		CreatedAt: tx.CreatedAt,
	}
}
