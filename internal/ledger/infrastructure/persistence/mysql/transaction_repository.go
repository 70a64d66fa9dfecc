// Package mysql 提供了流水仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/paperbroker/internal/ledger/domain"
	"github.com/wyfcoding/paperbroker/pkg/db"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// ledgerRepositoryImpl 是 domain.LedgerRepository 接口的 GORM 实现。
type ledgerRepositoryImpl struct {
	db *gorm.DB
}

// NewLedgerRepository 创建流水仓储实例
func NewLedgerRepository(gdb *gorm.DB) domain.LedgerRepository {
	return &ledgerRepositoryImpl{db: gdb}
}

// Append 实现 domain.LedgerRepository.Append
func (r *ledgerRepositoryImpl) Append(ctx context.Context, tx *domain.Transaction) error {
	if err := db.FromContext(ctx, r.db).Create(tx).Error; err != nil {
		logger.Error(ctx, "ledger_repository.append failed", "user_id", tx.UserID, "symbol", tx.Symbol, "error", err)
		return fmt.Errorf("%w: append: %v", domain.ErrStorage, err)
	}
	return nil
}

// ListByUser 实现 domain.LedgerRepository.ListByUser，按主键升序即写入顺序
func (r *ledgerRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := db.FromContext(ctx, r.db).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&txs).Error
	if err != nil {
		logger.Error(ctx, "ledger_repository.list_by_user failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: list: %v", domain.ErrStorage, err)
	}
	return txs, nil
}

// positionRow SUM GROUP BY 的扫描目标
type positionRow struct {
	Symbol string
	Net    int64
}

// PositionsByUser 实现 domain.LedgerRepository.PositionsByUser。
// 没有任何流水的标的不产生行，调用方按净持仓为零处理
func (r *ledgerRepositoryImpl) PositionsByUser(ctx context.Context, userID uint) (map[string]int64, error) {
	var rows []positionRow
	err := db.FromContext(ctx, r.db).
		Model(&domain.Transaction{}).
		Select("symbol, SUM(shares) AS net").
		Where("user_id = ?", userID).
		Group("symbol").
		Scan(&rows).Error
	if err != nil {
		logger.Error(ctx, "ledger_repository.positions_by_user failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: positions: %v", domain.ErrStorage, err)
	}

	positions := make(map[string]int64, len(rows))
	for _, row := range rows {
		if row.Net != 0 {
			positions[row.Symbol] = row.Net
		}
	}
	return positions, nil
}
