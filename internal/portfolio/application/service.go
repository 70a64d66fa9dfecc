package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	accountdomain "github.com/wyfcoding/paperbroker/internal/account/domain"
	ledgerdomain "github.com/wyfcoding/paperbroker/internal/ledger/domain"
	marketdomain "github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/internal/portfolio/domain"
)

// Transactor 在单个原子单元中执行 fn；pkg/db 提供 GORM 实现，测试用内存替身
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PortfolioService 组合估值与流水查询的读侧服务，无副作用
type PortfolioService struct {
	users  accountdomain.UserRepository
	ledger ledgerdomain.LedgerRepository
	oracle marketdomain.Oracle
	tx     Transactor
}

// NewPortfolioService 创建组合服务
func NewPortfolioService(
	users accountdomain.UserRepository,
	ledger ledgerdomain.LedgerRepository,
	oracle marketdomain.Oracle,
	tx Transactor,
) *PortfolioService {
	return &PortfolioService{users: users, ledger: ledger, oracle: oracle, tx: tx}
}

// Valuate 汇总净持仓并按现价估值。
// 持仓中任一标的取价失败返回 ErrValuation，不返回部分结果
func (s *PortfolioService) Valuate(ctx context.Context, userID uint) (*domain.Valuation, error) {
	// 现金与持仓在同一事务快照中读取：两条读语句之间提交的交易
	// 不会造成只见流水不见扣款的半套结果。取价在事务外进行
	var user *accountdomain.User
	var positions map[string]int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if user, err = s.users.Get(ctx, userID); err != nil {
			return err
		}
		positions, err = s.ledger.PositionsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 固定遍历顺序，保证无交易间隔的两次读取结果一致
	symbols := make([]string, 0, len(positions))
	for symbol, net := range positions {
		if net > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	holdings := make([]domain.Holding, 0, len(symbols))
	total := user.Cash
	for _, symbol := range symbols {
		quote, err := s.oracle.Lookup(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrValuation, symbol, err)
		}

		shares := positions[symbol]
		value := quote.Price.Mul(decimal.NewFromInt(shares))
		holdings = append(holdings, domain.Holding{
			Symbol: symbol,
			Name:   quote.Name,
			Shares: shares,
			Price:  quote.Price,
			Value:  value,
		})
		total = total.Add(value)
	}

	return &domain.Valuation{
		Holdings:      holdings,
		Cash:          user.Cash,
		TotalNetWorth: total,
	}, nil
}

// History 按写入顺序返回用户的全部成交流水
func (s *PortfolioService) History(ctx context.Context, userID uint) ([]ledgerdomain.Transaction, error) {
	return s.ledger.ListByUser(ctx, userID)
}
