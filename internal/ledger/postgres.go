package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists balances and transactions in PostgreSQL. Every
// operation runs in one database transaction with row locks on the affected
// users, so balance updates and the transaction insert commit together or
// not at all.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type lockedUser struct {
	party   Party
	balance decimal.Decimal
}

func lockUser(ctx context.Context, tx pgx.Tx, id int64) (lockedUser, error) {
	row := tx.QueryRow(ctx, `SELECT id, first_name, last_name, balance FROM users WHERE id = $1 FOR UPDATE`, id)
	var u lockedUser
	if err := row.Scan(&u.party.ID, &u.party.FirstName, &u.party.LastName, &u.balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lockedUser{}, ErrNotFound
		}
		return lockedUser{}, err
	}
	return u, nil
}

func setBalance(ctx context.Context, tx pgx.Tx, id int64, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `UPDATE users SET balance = $1 WHERE id = $2`, balance, id)
	return err
}

func insertTransaction(ctx context.Context, tx pgx.Tx, record *Transaction) error {
	var senderID *int64
	if record.Sender != nil {
		senderID = &record.Sender.ID
	}
	row := tx.QueryRow(ctx, `INSERT INTO transactions (amount, type, sender_id, recipient_id, created_at)
        VALUES ($1, $2, $3, $4, now()) RETURNING id, created_at`,
		record.Amount, record.Type, senderID, record.Recipient.ID)
	return row.Scan(&record.ID, &record.CreatedAt)
}

// Fund increments the user's balance and appends a FUND transaction.
func (s *PostgresStore) Fund(ctx context.Context, userID int64, amount decimal.Decimal) (FundOutcome, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return FundOutcome{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	recipient, err := lockUser(ctx, tx, userID)
	if err != nil {
		return FundOutcome{}, err
	}

	balance := recipient.balance.Add(amount)
	if err := setBalance(ctx, tx, userID, balance); err != nil {
		return FundOutcome{}, err
	}

	record := Transaction{Amount: amount, Type: TypeFund, Recipient: recipient.party}
	if err := insertTransaction(ctx, tx, &record); err != nil {
		return FundOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return FundOutcome{}, err
	}
	return FundOutcome{Balance: balance, Transaction: record}, nil
}

// Transfer moves amount between the two users and appends a single TRANSFER
// transaction. Rows are locked in ascending id order so two concurrent
// transfers touching the same pair cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (TransferOutcome, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferOutcome{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	locked := make(map[int64]lockedUser, 2)
	first, second := senderID, recipientID
	if recipientID < senderID {
		first, second = recipientID, senderID
	}
	for _, id := range []int64{first, second} {
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) && id == recipientID {
				return TransferOutcome{}, fmt.Errorf("recipient %w", ErrNotFound)
			}
			if errors.Is(err, ErrNotFound) {
				return TransferOutcome{}, fmt.Errorf("sender %w", ErrNotFound)
			}
			return TransferOutcome{}, err
		}
		locked[id] = u
	}

	sender, recipient := locked[senderID], locked[recipientID]
	if sender.balance.LessThan(amount) {
		return TransferOutcome{}, ErrInsufficientBalance
	}

	senderBalance := sender.balance.Sub(amount)
	recipientBalance := recipient.balance.Add(amount)

	if err := setBalance(ctx, tx, senderID, senderBalance); err != nil {
		return TransferOutcome{}, err
	}
	if err := setBalance(ctx, tx, recipientID, recipientBalance); err != nil {
		return TransferOutcome{}, err
	}

	senderParty := sender.party
	record := Transaction{Amount: amount, Type: TypeTransfer, Sender: &senderParty, Recipient: recipient.party}
	if err := insertTransaction(ctx, tx, &record); err != nil {
		return TransferOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferOutcome{}, err
	}
	return TransferOutcome{SenderBalance: senderBalance, RecipientBalance: recipientBalance, Transaction: record}, nil
}

// ListByUser returns one page of transactions where the user is sender or
// recipient, newest first, along with the total count of matches.
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Transaction, int64, error) {
	const query = `
        SELECT t.id, t.amount, t.type, t.created_at,
               s.id, s.first_name, s.last_name,
               r.id, r.first_name, r.last_name
        FROM transactions t
        LEFT JOIN users s ON s.id = t.sender_id
        INNER JOIN users r ON r.id = t.recipient_id
        WHERE t.sender_id = $1 OR t.recipient_id = $1
        ORDER BY t.created_at DESC, t.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var (
			tx          Transaction
			senderID    *int64
			senderFirst *string
			senderLast  *string
		)
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.Type, &tx.CreatedAt,
			&senderID, &senderFirst, &senderLast,
			&tx.Recipient.ID, &tx.Recipient.FirstName, &tx.Recipient.LastName); err != nil {
			return nil, 0, err
		}
		if senderID != nil {
			tx.Sender = &Party{ID: *senderID, FirstName: *senderFirst, LastName: *senderLast}
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR recipient_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
