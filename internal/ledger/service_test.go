package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paystream/paystream/internal/user"
)

func newTestLedger() (*user.MemoryRepository, *Service) {
	users := user.NewMemoryRepository()
	store := NewMemoryStore(users)
	return users, NewService(users, store)
}

func seedUser(t *testing.T, users *user.MemoryRepository, first, last string) user.User {
	t.Helper()
	u, err := users.Create(context.Background(), user.User{
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s.%s@example.com", first, last),
		Balance:   decimal.Zero,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func balanceOf(t *testing.T, users *user.MemoryRepository, id int64) decimal.Decimal {
	t.Helper()
	u, err := users.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find user %d: %v", id, err)
	}
	return u.Balance
}

func TestFundIncreasesBalanceAndRecordsTransaction(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")

	amount := decimal.NewFromInt(150)
	outcome, err := svc.Fund(ctx, u.ID, amount)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if !outcome.Balance.Equal(amount) {
		t.Fatalf("expected balance %s, got %s", amount, outcome.Balance)
	}
	if !balanceOf(t, users, u.ID).Equal(amount) {
		t.Fatalf("stored balance not updated")
	}

	history, err := svc.History(ctx, u.ID, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != 1 || len(history.Transactions) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", history.Total)
	}
	entry := history.Transactions[0]
	if entry.Type != TypeFund {
		t.Fatalf("expected FUND, got %s", entry.Type)
	}
	if entry.Sender != nil {
		t.Fatalf("fund transaction must have no sender")
	}
	if entry.Recipient.ID != u.ID || !entry.Amount.Equal(amount) {
		t.Fatalf("unexpected transaction: %+v", entry)
	}
	if entry.Action != ActionCredit {
		t.Fatalf("expected CREDIT for recipient view, got %s", entry.Action)
	}
}

func TestFundRejectsNonPositiveAmount(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if _, err := svc.Fund(ctx, u.ID, amount); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation for %s, got %v", amount, err)
		}
	}

	if !balanceOf(t, users, u.ID).IsZero() {
		t.Fatalf("balance mutated by rejected fund")
	}
	history, _ := svc.History(ctx, u.ID, 1, 10)
	if history.Total != 0 {
		t.Fatalf("rejected fund recorded a transaction")
	}
}

func TestFundUnknownUser(t *testing.T) {
	_, svc := newTestLedger()
	if _, err := svc.Fund(context.Background(), 42, decimal.NewFromInt(100)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferMovesFundsAndConservesTotal(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	sender := seedUser(t, users, "Ada", "Obi")
	recipient := seedUser(t, users, "Ben", "Eze")

	if _, err := svc.Fund(ctx, sender.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}

	amount := decimal.NewFromInt(40)
	outcome, err := svc.Transfer(ctx, sender.ID, recipient.ID, amount)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !outcome.SenderBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected sender balance 60, got %s", outcome.SenderBalance)
	}
	if !outcome.RecipientBalance.Equal(amount) {
		t.Fatalf("expected recipient balance 40, got %s", outcome.RecipientBalance)
	}

	total := balanceOf(t, users, sender.ID).Add(balanceOf(t, users, recipient.ID))
	if !total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total balance not conserved, got %s", total)
	}

	senderHistory, err := svc.History(ctx, sender.ID, 1, 10)
	if err != nil {
		t.Fatalf("sender history: %v", err)
	}
	if senderHistory.Total != 2 {
		t.Fatalf("expected fund + transfer for sender, got %d", senderHistory.Total)
	}
	latest := senderHistory.Transactions[0]
	if latest.Type != TypeTransfer || latest.Action != ActionDebit {
		t.Fatalf("expected TRANSFER/DEBIT for sender view, got %s/%s", latest.Type, latest.Action)
	}
	if latest.Sender == nil || latest.Sender.ID != sender.ID || latest.Recipient.ID != recipient.ID {
		t.Fatalf("transfer parties wrong: %+v", latest)
	}

	recipientHistory, err := svc.History(ctx, recipient.ID, 1, 10)
	if err != nil {
		t.Fatalf("recipient history: %v", err)
	}
	if recipientHistory.Total != 1 {
		t.Fatalf("expected exactly one transaction for recipient, got %d", recipientHistory.Total)
	}
	if recipientHistory.Transactions[0].Action != ActionCredit {
		t.Fatalf("expected CREDIT for recipient view")
	}
}

func TestTransferToSelf(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")
	if _, err := svc.Fund(ctx, u.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := svc.Transfer(ctx, u.ID, u.ID, decimal.NewFromInt(10)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if !balanceOf(t, users, u.ID).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("self-transfer mutated balance")
	}
	history, _ := svc.History(ctx, u.ID, 1, 10)
	if history.Total != 1 {
		t.Fatalf("self-transfer recorded a transaction")
	}
}

func TestTransferNonPositiveAmount(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	sender := seedUser(t, users, "Ada", "Obi")
	recipient := seedUser(t, users, "Ben", "Eze")

	if _, err := svc.Transfer(ctx, sender.ID, recipient.ID, decimal.Zero); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if _, err := svc.Transfer(ctx, sender.ID, recipient.ID, decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	sender := seedUser(t, users, "Ada", "Obi")
	recipient := seedUser(t, users, "Ben", "Eze")
	if _, err := svc.Fund(ctx, sender.ID, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := svc.Transfer(ctx, sender.ID, recipient.ID, decimal.NewFromInt(50)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !balanceOf(t, users, sender.ID).Equal(decimal.NewFromInt(20)) {
		t.Fatalf("failed transfer mutated sender balance")
	}
	if !balanceOf(t, users, recipient.ID).IsZero() {
		t.Fatalf("failed transfer mutated recipient balance")
	}
}

func TestTransferUnknownUsers(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")
	if _, err := svc.Fund(ctx, u.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := svc.Transfer(ctx, u.ID, 99, decimal.NewFromInt(10)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown recipient, got %v", err)
	}
	if _, err := svc.Transfer(ctx, 98, u.ID, decimal.NewFromInt(10)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sender, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")

	for i := 0; i < 25; i++ {
		if _, err := svc.Fund(ctx, u.ID, decimal.NewFromInt(10)); err != nil {
			t.Fatalf("fund %d: %v", i, err)
		}
	}

	history, err := svc.History(ctx, u.ID, 2, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Transactions) != 10 {
		t.Fatalf("expected 10 records, got %d", len(history.Transactions))
	}
	if history.Total != 25 || history.TotalPages != 3 || history.CurrentPage != 2 {
		t.Fatalf("unexpected pagination: total=%d pages=%d current=%d", history.Total, history.TotalPages, history.CurrentPage)
	}

	// Newest first: page 2 of 25 entries holds ids 15 down to 6.
	if history.Transactions[0].ID != 15 || history.Transactions[9].ID != 6 {
		t.Fatalf("unexpected ordering: first=%d last=%d", history.Transactions[0].ID, history.Transactions[9].ID)
	}

	last, err := svc.History(ctx, u.ID, 3, 10)
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(last.Transactions) != 5 {
		t.Fatalf("expected 5 records on last page, got %d", len(last.Transactions))
	}
}

func TestHistoryIdempotent(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")
	for i := 0; i < 3; i++ {
		if _, err := svc.Fund(ctx, u.ID, decimal.NewFromInt(10)); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}

	first, err := svc.History(ctx, u.ID, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	second, err := svc.History(ctx, u.ID, 1, 10)
	if err != nil {
		t.Fatalf("history again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("history not stable across identical calls")
	}
}

func TestHistoryUnknownUser(t *testing.T) {
	_, svc := newTestLedger()
	if _, err := svc.History(context.Background(), 7, 1, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentFunds(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	u := seedUser(t, users, "Ada", "Obi")

	const workers = 50
	one := decimal.NewFromInt(1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Fund(ctx, u.ID, one); err != nil {
				t.Errorf("concurrent fund: %v", err)
			}
		}()
	}
	wg.Wait()

	if !balanceOf(t, users, u.ID).Equal(decimal.NewFromInt(workers)) {
		t.Fatalf("lost update: balance=%s", balanceOf(t, users, u.ID))
	}
	history, err := svc.History(ctx, u.ID, 1, workers+1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Total != workers {
		t.Fatalf("expected %d transactions, got %d", workers, history.Total)
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	users, svc := newTestLedger()
	ctx := context.Background()
	a := seedUser(t, users, "Ada", "Obi")
	b := seedUser(t, users, "Ben", "Eze")
	for _, id := range []int64{a.ID, b.ID} {
		if _, err := svc.Fund(ctx, id, decimal.NewFromInt(1000)); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}

	amount := decimal.NewFromInt(10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, a.ID, b.ID, amount); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, b.ID, a.ID, amount); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	total := balanceOf(t, users, a.ID).Add(balanceOf(t, users, b.ID))
	if !total.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("total not conserved, got %s", total)
	}
}
