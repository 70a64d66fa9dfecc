package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	accountdomain "github.com/wyfcoding/paperbroker/internal/account/domain"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	marketdomain "github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/internal/portfolio/domain"
)

type fakeUserRepo struct {
	user accountdomain.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *accountdomain.User) error { return nil }

func (r *fakeUserRepo) Get(ctx context.Context, id uint) (*accountdomain.User, error) {
	copied := r.user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*accountdomain.User, error) {
	return nil, accountdomain.ErrUserNotFound
}

func (r *fakeUserRepo) GetForUpdate(ctx context.Context, id uint) (*accountdomain.User, error) {
	return r.Get(ctx, id)
}

func (r *fakeUserRepo) UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error {
	return nil
}

type fakeLedgerRepo struct {
	txs []ledgerdomain.Transaction
}

func (r *fakeLedgerRepo) Append(ctx context.Context, tx *ledgerdomain.Transaction) error {
	return nil
}

func (r *fakeLedgerRepo) ListByUser(ctx context.Context, userID uint) ([]ledgerdomain.Transaction, error) {
	return r.txs, nil
}

func (r *fakeLedgerRepo) PositionsByUser(ctx context.Context, userID uint) (map[string]int64, error) {
	return ledgerdomain.AggregatePositions(r.txs), nil
}

// nopTx 直通事务器：单个 fake 内部的读取天然一致
type nopTx struct{}

func (nopTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type staticOracle struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (o *staticOracle) Lookup(ctx context.Context, symbol string) (*marketdomain.Quote, error) {
	o.calls++
	price, ok := o.prices[symbol]
	if !ok {
		return nil, marketdomain.ErrUnknownSymbol
	}
	return &marketdomain.Quote{Symbol: symbol, Name: symbol + " Inc.", Price: price}, nil
}

func entry(symbol string, shares int64, price string) ledgerdomain.Transaction {
	return ledgerdomain.Transaction{
		UserID: 1,
		Symbol: symbol,
		Shares: shares,
		Price:  decimal.RequireFromString(price),
	}
}

func TestValuate(t *testing.T) {
	users := &fakeUserRepo{user: accountdomain.User{Username: "alice", Cash: decimal.RequireFromString("8500.00")}}
	ledger := &fakeLedgerRepo{txs: []ledgerdomain.Transaction{
		entry("MSFT", 5, "100.00"),
		entry("AAPL", 10, "150.00"),
		entry("AAPL", -4, "155.00"),
	}}
	oracle := &staticOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("160.00"),
		"MSFT": decimal.RequireFromString("110.00"),
	}}

	svc := NewPortfolioService(users, ledger, oracle, nopTx{})
	valuation, err := svc.Valuate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}

	if len(valuation.Holdings) != 2 {
		t.Fatalf("holdings = %d, want 2", len(valuation.Holdings))
	}
	// 持仓按标的字典序排列
	if valuation.Holdings[0].Symbol != "AAPL" || valuation.Holdings[1].Symbol != "MSFT" {
		t.Errorf("holdings order = %s, %s, want AAPL, MSFT",
			valuation.Holdings[0].Symbol, valuation.Holdings[1].Symbol)
	}
	if valuation.Holdings[0].Shares != 6 {
		t.Errorf("AAPL net shares = %d, want 6", valuation.Holdings[0].Shares)
	}
	if !valuation.Holdings[0].Value.Equal(decimal.RequireFromString("960.00")) {
		t.Errorf("AAPL value = %s, want 960.00", valuation.Holdings[0].Value)
	}
	// 8500 + 6*160 + 5*110
	if !valuation.TotalNetWorth.Equal(decimal.RequireFromString("10010.00")) {
		t.Errorf("total = %s, want 10010.00", valuation.TotalNetWorth)
	}
	if !valuation.Cash.Equal(decimal.RequireFromString("8500.00")) {
		t.Errorf("cash = %s, want 8500.00", valuation.Cash)
	}
}

func TestValuateEmptyPortfolio(t *testing.T) {
	users := &fakeUserRepo{user: accountdomain.User{Username: "alice", Cash: decimal.NewFromInt(10000)}}
	svc := NewPortfolioService(users, &fakeLedgerRepo{}, &staticOracle{}, nopTx{})

	valuation, err := svc.Valuate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}
	if len(valuation.Holdings) != 0 {
		t.Errorf("holdings = %d, want 0", len(valuation.Holdings))
	}
	if !valuation.TotalNetWorth.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("total = %s, want 10000", valuation.TotalNetWorth)
	}
}

// 持仓中的标的退市后取价失败：整体报错，不返回部分结果
func TestValuateDelistedHolding(t *testing.T) {
	users := &fakeUserRepo{user: accountdomain.User{Username: "alice", Cash: decimal.NewFromInt(5000)}}
	ledger := &fakeLedgerRepo{txs: []ledgerdomain.Transaction{
		entry("AAPL", 10, "150.00"),
		entry("GONE", 3, "20.00"),
	}}
	oracle := &staticOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("160.00"),
	}}

	svc := NewPortfolioService(users, ledger, oracle, nopTx{})
	_, err := svc.Valuate(context.Background(), 1)
	if !errors.Is(err, domain.ErrValuation) {
		t.Fatalf("err = %v, want ErrValuation", err)
	}
}

// 净持仓归零的标的不参与估值，也不触发取价
func TestValuateSkipsClosedPositions(t *testing.T) {
	users := &fakeUserRepo{user: accountdomain.User{Username: "alice", Cash: decimal.NewFromInt(10000)}}
	ledger := &fakeLedgerRepo{txs: []ledgerdomain.Transaction{
		entry("AAPL", 10, "150.00"),
		entry("AAPL", -10, "160.00"),
	}}
	oracle := &staticOracle{prices: map[string]decimal.Decimal{}}

	svc := NewPortfolioService(users, ledger, oracle, nopTx{})
	valuation, err := svc.Valuate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}
	if len(valuation.Holdings) != 0 {
		t.Errorf("holdings = %d, want 0", len(valuation.Holdings))
	}
	if oracle.calls != 0 {
		t.Errorf("oracle calls = %d, want 0", oracle.calls)
	}
}

// snapshotStore 模拟带快照隔离的存储：InTx 期间的读取固定在进入事务
// 时的状态，期间提交的并发写只改动 live 状态
type snapshotStore struct {
	user accountdomain.User
	txs  []ledgerdomain.Transaction

	snapUser *accountdomain.User
	snapTxs  []ledgerdomain.Transaction

	// afterGet 在现金读取后触发一次，模拟恰好在两条读语句之间提交的交易
	afterGet func(s *snapshotStore)
}

func (s *snapshotStore) Create(ctx context.Context, user *accountdomain.User) error { return nil }

func (s *snapshotStore) Get(ctx context.Context, id uint) (*accountdomain.User, error) {
	user := s.user
	if s.snapUser != nil {
		user = *s.snapUser
	}
	if s.afterGet != nil {
		hook := s.afterGet
		s.afterGet = nil
		hook(s)
	}
	return &user, nil
}

func (s *snapshotStore) GetByUsername(ctx context.Context, username string) (*accountdomain.User, error) {
	return nil, accountdomain.ErrUserNotFound
}

func (s *snapshotStore) GetForUpdate(ctx context.Context, id uint) (*accountdomain.User, error) {
	return s.Get(ctx, id)
}

func (s *snapshotStore) UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error {
	s.user.Cash = cash
	return nil
}

func (s *snapshotStore) Append(ctx context.Context, tx *ledgerdomain.Transaction) error {
	s.txs = append(s.txs, *tx)
	return nil
}

func (s *snapshotStore) ListByUser(ctx context.Context, userID uint) ([]ledgerdomain.Transaction, error) {
	if s.snapTxs != nil {
		return s.snapTxs, nil
	}
	return s.txs, nil
}

func (s *snapshotStore) PositionsByUser(ctx context.Context, userID uint) (map[string]int64, error) {
	txs, _ := s.ListByUser(ctx, userID)
	return ledgerdomain.AggregatePositions(txs), nil
}

func (s *snapshotStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapUser := s.user
	s.snapUser = &snapUser
	s.snapTxs = append([]ledgerdomain.Transaction{}, s.txs...)
	defer func() {
		s.snapUser = nil
		s.snapTxs = nil
	}()
	return fn(ctx)
}

// 在现金读取与持仓读取之间提交一笔买入：估值必须给出交易前的
// 一致视图，而不是旧现金加新持仓的半套状态
func TestValuateNeverObservesHalfAppliedTrade(t *testing.T) {
	store := &snapshotStore{
		user: accountdomain.User{Username: "alice", Cash: decimal.NewFromInt(10000)},
	}
	store.afterGet = func(s *snapshotStore) {
		// 并发买入 10 股 AAPL @150：扣现金并追加流水，一次性落盘
		s.user.Cash = s.user.Cash.Sub(decimal.RequireFromString("1500.00"))
		s.txs = append(s.txs, entry("AAPL", 10, "150.00"))
	}
	oracle := &staticOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}

	svc := NewPortfolioService(store, store, oracle, store)
	valuation, err := svc.Valuate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}

	// 半套视图会给出 10000 + 1500 = 11500
	if !valuation.TotalNetWorth.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("total = %s, want 10000 (consistent pre-trade view)", valuation.TotalNetWorth)
	}
	if len(valuation.Holdings) != 0 {
		t.Errorf("holdings = %d, want 0", len(valuation.Holdings))
	}

	// 交易提交后的下一次读取看到完整的新状态
	valuation, err = svc.Valuate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Valuate: %v", err)
	}
	if !valuation.Cash.Equal(decimal.RequireFromString("8500.00")) {
		t.Errorf("cash = %s, want 8500.00", valuation.Cash)
	}
	if !valuation.TotalNetWorth.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("total = %s, want 10000", valuation.TotalNetWorth)
	}
}

func TestHistoryPreservesOrder(t *testing.T) {
	ledger := &fakeLedgerRepo{txs: []ledgerdomain.Transaction{
		entry("AAPL", 10, "150.00"),
		entry("MSFT", 5, "100.00"),
		entry("AAPL", -10, "160.00"),
	}}
	svc := NewPortfolioService(&fakeUserRepo{}, ledger, &staticOracle{}, nopTx{})

	txs, err := svc.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(txs))
	}
	wantShares := []int64{10, 5, -10}
	for i, want := range wantShares {
		if txs[i].Shares != want {
			t.Errorf("txs[%d].Shares = %d, want %d", i, txs[i].Shares, want)
		}
	}
}
