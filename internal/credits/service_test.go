package credits

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Libertai/libertai-inference/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []store.CreditTransaction
}

func (s *recordingSink) PublishCreditTransaction(tx *store.CreditTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *tx)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestService(t *testing.T, sink EventSink, bonuses map[store.Provider]float64) *Service {
	t.Helper()
	db := store.OpenSQLite(":memory:")
	store.AutoMigrate(db)
	return NewService(store.NewRepository(db), nil, sink, bonuses)
}

func TestAddCreditsPublishesAndDeduplicates(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, nil)
	ctx := context.Background()

	created, err := svc.AddCredits(ctx, AddParams{
		Provider:        store.ProviderBase,
		Address:         "0xAAAA",
		Amount:          12.5,
		TransactionHash: "0xhash1",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !created {
		t.Fatal("first delivery not created")
	}

	// Re-delivery of the same hash must be silently skipped.
	created, err = svc.AddCredits(ctx, AddParams{
		Provider:        store.ProviderBase,
		Address:         "0xAAAA",
		Amount:          12.5,
		TransactionHash: "0xhash1",
	})
	if err != nil {
		t.Fatalf("re-delivery: %v", err)
	}
	if created {
		t.Fatal("duplicate hash reported as created")
	}

	if sink.count() != 1 {
		t.Fatalf("sink events = %d, want 1", sink.count())
	}
	balance, err := svc.Balance(ctx, "0xAAAA")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 12.5 {
		t.Fatalf("balance = %v, want 12.5", balance)
	}
}

func TestAddCreditsRejectsUnknownProvider(t *testing.T) {
	svc := newTestService(t, nil, nil)
	if _, err := svc.AddCredits(context.Background(), AddParams{
		Provider: store.Provider("mystery"),
		Address:  "0xAAAA",
		Amount:   1,
	}); err == nil {
		t.Fatal("unknown provider accepted")
	}
	if _, err := svc.AddCredits(context.Background(), AddParams{
		Provider: store.ProviderBase,
		Address:  "0xAAAA",
		Amount:   -1,
	}); err == nil {
		t.Fatal("negative amount accepted")
	}
}

func TestAddCreditsAppliesProviderBonus(t *testing.T) {
	svc := newTestService(t, nil, map[store.Provider]float64{store.ProviderSOLSolana: 1.2})
	ctx := context.Background()

	if _, err := svc.AddCredits(ctx, AddParams{
		Provider:        store.ProviderSOLSolana,
		Address:         "bonusaddr",
		Amount:          100,
		TransactionHash: "sig1",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	// A provider outside the bonus map is credited at face value.
	if _, err := svc.AddCredits(ctx, AddParams{
		Provider:        store.ProviderLTAISolana,
		Address:         "bonusaddr",
		Amount:          100,
		TransactionHash: "sig2",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	balance, err := svc.Balance(ctx, "bonusaddr")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 220 {
		t.Fatalf("balance = %v, want 220 (100*1.2 + 100)", balance)
	}
}

func TestUseCreditsDrainsExpiringFirstAndToleratesShortfall(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()
	addr := "0xCCCC"

	soon := time.Now().Add(time.Hour)
	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderVoucher, Address: addr, Amount: 10,
	}); err != nil {
		t.Fatalf("add voucher: %v", err)
	}
	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderBase, Address: addr, Amount: 10,
		TransactionHash: "0xexp", ExpiredAt: &soon,
	}); err != nil {
		t.Fatalf("add expiring: %v", err)
	}

	ok, err := svc.UseCredits(ctx, addr, 12)
	if err != nil || !ok {
		t.Fatalf("use: ok=%v err=%v", ok, err)
	}
	balance, _ := svc.Balance(ctx, addr)
	if balance != 8 {
		t.Fatalf("balance = %v, want 8", balance)
	}
	// The expiring transaction must be fully drained before the voucher.
	txs, _ := svc.Transactions(ctx, addr)
	for _, tx := range txs {
		if tx.TransactionHash != nil && *tx.TransactionHash == "0xexp" && tx.AmountLeft != 0 {
			t.Fatalf("expiring tx amount_left = %v, want 0", tx.AmountLeft)
		}
	}

	// Over-debit zeroes what is there and still succeeds.
	ok, err = svc.UseCredits(ctx, addr, 100)
	if err != nil || !ok {
		t.Fatalf("over-debit: ok=%v err=%v", ok, err)
	}
	balance, _ = svc.Balance(ctx, addr)
	if balance != 0 {
		t.Fatalf("balance after over-debit = %v, want 0", balance)
	}
}

func TestUseCreditsConcurrentDebitsNeverOverspend(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()
	addr := "0xDDDD"

	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderVoucher, Address: addr, Amount: 100,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.UseCredits(ctx, addr, 10); err != nil {
				t.Errorf("use: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := svc.Balance(ctx, addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %v, want exactly 0 after 10x10 debits", balance)
	}
}

func TestChangeVoucherExpirationValidatesID(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	ok, err := svc.ChangeVoucherExpiration(ctx, "not-a-uuid", nil)
	if err != nil {
		t.Fatalf("malformed id: %v", err)
	}
	if ok {
		t.Fatal("malformed voucher id reported as updated")
	}

	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderVoucher, Address: "0xEEEE", Amount: 5,
	}); err != nil {
		t.Fatalf("add voucher: %v", err)
	}
	vouchers, err := svc.Vouchers(ctx, "0xEEEE")
	if err != nil || len(vouchers) != 1 {
		t.Fatalf("vouchers: %v (%d)", err, len(vouchers))
	}
	exp := time.Now().Add(time.Hour)
	ok, err = svc.ChangeVoucherExpiration(ctx, vouchers[0].ID, &exp)
	if err != nil || !ok {
		t.Fatalf("change expiration: ok=%v err=%v", ok, err)
	}
}

func TestUpdateTransactionStatusCompletesPending(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddCredits(ctx, AddParams{
		Provider:        store.ProviderThirdweb,
		Address:         "0xFFFF",
		Amount:          30,
		TransactionHash: "0xonramp",
		Status:          store.StatusPending,
	}); err != nil {
		t.Fatalf("add pending: %v", err)
	}

	// Pending funds are visible in history but not spendable.
	balance, _ := svc.Balance(ctx, "0xFFFF")
	if balance != 0 {
		t.Fatalf("pending balance = %v, want 0", balance)
	}

	ok, err := svc.UpdateTransactionStatus(ctx, "0xonramp", store.StatusCompleted)
	if err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	balance, _ = svc.Balance(ctx, "0xFFFF")
	if balance != 30 {
		t.Fatalf("completed balance = %v, want 30", balance)
	}
}

func TestExpireCredits(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderVoucher, Address: "0x9999", Amount: 5, ExpiredAt: &past,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddCredits(ctx, AddParams{
		Provider: store.ProviderVoucher, Address: "0x9999", Amount: 7,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	result, err := svc.ExpireCredits(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if result.UpdatedCount != 1 || len(result.Transactions) != 1 {
		t.Fatalf("result = %+v, want one expired transaction", result)
	}
	balance, _ := svc.Balance(ctx, "0x9999")
	if balance != 7 {
		t.Fatalf("balance = %v, want 7", balance)
	}
}
