package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paystream/paystream/internal/user"
)

// MemoryStore is a concurrency-safe in-memory ledger store backed by a
// user.MemoryRepository. Balance mutations and the transaction append happen
// under one lock, giving the same all-or-nothing semantics as the Postgres
// store. Used in tests and when running without a database in dev.
type MemoryStore struct {
	mu           sync.Mutex
	users        *user.MemoryRepository
	nextID       int64
	transactions []Transaction
}

// NewMemoryStore builds an in-memory ledger store over the given user store.
func NewMemoryStore(users *user.MemoryRepository) *MemoryStore {
	return &MemoryStore{users: users, nextID: 1}
}

func toParty(u user.User) Party {
	return Party{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// Fund increments the user's balance and appends a FUND transaction.
func (s *MemoryStore) Fund(ctx context.Context, userID int64, amount decimal.Decimal) (FundOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return FundOutcome{}, ErrNotFound
	}

	balances, err := s.users.Adjust(ctx, map[int64]decimal.Decimal{userID: amount})
	if err != nil {
		return FundOutcome{}, err
	}

	record := s.append(Transaction{Amount: amount, Type: TypeFund, Recipient: toParty(recipient)})
	return FundOutcome{Balance: balances[userID], Transaction: record}, nil
}

// Transfer moves amount between the two users and appends a TRANSFER
// transaction, all under the store lock.
func (s *MemoryStore) Transfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (TransferOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return TransferOutcome{}, fmt.Errorf("sender %w", ErrNotFound)
	}
	recipient, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		return TransferOutcome{}, fmt.Errorf("recipient %w", ErrNotFound)
	}

	if sender.Balance.LessThan(amount) {
		return TransferOutcome{}, ErrInsufficientBalance
	}

	balances, err := s.users.Adjust(ctx, map[int64]decimal.Decimal{
		senderID:    amount.Neg(),
		recipientID: amount,
	})
	if err != nil {
		if errors.Is(err, user.ErrNegativeBalance) {
			return TransferOutcome{}, ErrInsufficientBalance
		}
		return TransferOutcome{}, err
	}

	senderParty := toParty(sender)
	record := s.append(Transaction{Amount: amount, Type: TypeTransfer, Sender: &senderParty, Recipient: toParty(recipient)})
	return TransferOutcome{
		SenderBalance:    balances[senderID],
		RecipientBalance: balances[recipientID],
		Transaction:      record,
	}, nil
}

// ListByUser returns one page of the user's transactions, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID int64, limit, offset int) ([]Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []Transaction
	// Entries are appended in commit order, so walking backwards yields
	// newest-first without re-sorting.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.Recipient.ID == userID || (tx.Sender != nil && tx.Sender.ID == userID) {
			matches = append(matches, tx)
		}
	}

	total := int64(len(matches))
	if offset >= len(matches) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], total, nil
}

func (s *MemoryStore) append(record Transaction) Transaction {
	record.ID = s.nextID
	record.CreatedAt = time.Now().UTC()
	s.nextID++
	s.transactions = append(s.transactions, record)
	return record
}
