package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	accountdomain "github.com/wyfcoding/paperbroker/internal/account/domain"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	marketdomain "github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/internal/trading/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
	"github.com/wyfcoding/paperbroker/pkg/metrics"
)

// Transactor 在单个原子单元中执行 fn；pkg/db 提供 GORM 实现，测试用内存替身
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TradeResult 成交结果
type TradeResult struct {
	Symbol string          `json:"symbol"`
	Side   domain.Side     `json:"side"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	// 成交总额
	Amount decimal.Decimal `json:"amount"`
	// 成交后的现金余额
	Cash decimal.Decimal `json:"cash"`
}

// TradeService 交易引擎：校验并执行买卖，原子地写现金与流水。
// 资金检查与变更对同一用户串行：每个用户同一时刻至多一笔在途交易
type TradeService struct {
	users     accountdomain.UserRepository
	ledger    ledgerdomain.LedgerRepository
	oracle    marketdomain.Oracle
	tx        Transactor
	publisher domain.EventPublisher
	metrics   *metrics.Metrics

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewTradeService 创建交易引擎；publisher 与 m 可为 nil
func NewTradeService(
	users accountdomain.UserRepository,
	ledger ledgerdomain.LedgerRepository,
	oracle marketdomain.Oracle,
	tx Transactor,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *TradeService {
	return &TradeService{
		users:     users,
		ledger:    ledger,
		oracle:    oracle,
		tx:        tx,
		publisher: publisher,
		metrics:   m,
		locks:     make(map[uint]*sync.Mutex),
	}
}

// Buy 买入：校验 -> 取价 -> 资金检查与扣款、追加流水（原子）。
// 任何失败路径都不产生副作用
func (s *TradeService) Buy(ctx context.Context, userID uint, symbol string, shares int64) (*TradeResult, error) {
	symbol, err := s.validate(symbol, shares)
	if err != nil {
		s.reject("validation")
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	quote, err := s.oracle.Lookup(ctx, symbol)
	if err != nil {
		s.rejectOracle(err)
		return nil, err
	}

	cost := quote.Price.Mul(decimal.NewFromInt(shares))

	var result *TradeResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		newCash := user.Cash.Sub(cost)
		if newCash.IsNegative() {
			return domain.ErrInsufficientFunds
		}

		if err := s.users.UpdateCash(ctx, userID, newCash); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, &ledgerdomain.Transaction{
			UserID: userID,
			Symbol: symbol,
			Shares: shares,
			Price:  quote.Price,
		}); err != nil {
			return err
		}
		if err := s.publish(ctx, userID, symbol, domain.SideBuy, shares, quote.Price); err != nil {
			return err
		}

		result = &TradeResult{
			Symbol: symbol,
			Side:   domain.SideBuy,
			Shares: shares,
			Price:  quote.Price,
			Amount: cost,
			Cash:   newCash,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.reject("insufficient_funds")
		}
		return nil, err
	}

	s.executed(domain.SideBuy)
	logger.Info(ctx, "buy executed",
		"user_id", userID, "symbol", symbol, "shares", shares, "price", quote.Price)
	return result, nil
}

// Sell 卖出：校验 -> 持仓检查 -> 取价 -> 加款与追加流水（原子）。
// 从未持有的标的净持仓按零计，卖出一律失败
func (s *TradeService) Sell(ctx context.Context, userID uint, symbol string, shares int64) (*TradeResult, error) {
	symbol, err := s.validate(symbol, shares)
	if err != nil {
		s.reject("validation")
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// 锁内读取：到变更为止不会有其他在途交易改动该用户的持仓
	positions, err := s.ledger.PositionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if shares > positions[symbol] {
		s.reject("insufficient_shares")
		return nil, domain.ErrInsufficientShares
	}

	quote, err := s.oracle.Lookup(ctx, symbol)
	if err != nil {
		s.rejectOracle(err)
		return nil, err
	}

	proceeds := quote.Price.Mul(decimal.NewFromInt(shares))

	var result *TradeResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		newCash := user.Cash.Add(proceeds)
		if err := s.users.UpdateCash(ctx, userID, newCash); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, &ledgerdomain.Transaction{
			UserID: userID,
			Symbol: symbol,
			Shares: -shares,
			Price:  quote.Price,
		}); err != nil {
			return err
		}
		if err := s.publish(ctx, userID, symbol, domain.SideSell, -shares, quote.Price); err != nil {
			return err
		}

		result = &TradeResult{
			Symbol: symbol,
			Side:   domain.SideSell,
			Shares: shares,
			Price:  quote.Price,
			Amount: proceeds,
			Cash:   newCash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.executed(domain.SideSell)
	logger.Info(ctx, "sell executed",
		"user_id", userID, "symbol", symbol, "shares", shares, "price", quote.Price)
	return result, nil
}

// HeldSymbols 返回用户当前净持仓大于零的标的（卖出表单的下拉项）
func (s *TradeService) HeldSymbols(ctx context.Context, userID uint) ([]string, error) {
	positions, err := s.ledger.PositionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(positions))
	for symbol, net := range positions {
		if net > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *TradeService) validate(symbol string, shares int64) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", domain.ErrInvalidSymbol
	}
	if shares <= 0 {
		return "", domain.ErrInvalidShares
	}
	return symbol, nil
}

// userLock 返回某个用户的互斥锁；锁表只增不减，上限是用户数
func (s *TradeService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *TradeService) publish(ctx context.Context, userID uint, symbol string, side domain.Side, shares int64, price decimal.Decimal) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishTradeExecuted(ctx, domain.TradeExecutedEvent{
		UserID:     userID,
		Symbol:     symbol,
		Side:       side,
		Shares:     shares,
		Price:      price,
		OccurredAt: time.Now(),
	})
}

func (s *TradeService) executed(side domain.Side) {
	if s.metrics != nil {
		s.metrics.TradesTotal.WithLabelValues(strings.ToLower(string(side))).Inc()
	}
}

func (s *TradeService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.TradesRejectedTotal.WithLabelValues(reason).Inc()
	}
}

func (s *TradeService) rejectOracle(err error) {
	if errors.Is(err, marketdomain.ErrUnknownSymbol) {
		s.reject("unknown_symbol")
	} else {
		s.reject("oracle_unavailable")
	}
}
