package application

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/paperbroker/internal/marketdata/domain"
	"github.com/wyfcoding/paperbroker/pkg/metrics"
)

// QuoteService 行情查询应用服务。
// 包装具体行情源，补充指标埋点；自身实现 domain.Oracle，
// 交易与估值模块统一经由它取价
type QuoteService struct {
	oracle  domain.Oracle
	metrics *metrics.Metrics
}

// NewQuoteService 创建行情查询服务
func NewQuoteService(oracle domain.Oracle, m *metrics.Metrics) *QuoteService {
	return &QuoteService{oracle: oracle, metrics: m}
}

// Lookup 实现 domain.Oracle
func (s *QuoteService) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	start := time.Now()
	q, err := s.oracle.Lookup(ctx, symbol)
	if s.metrics != nil {
		s.metrics.OracleLookupDuration.Observe(time.Since(start).Seconds())
		s.metrics.OracleLookupsTotal.WithLabelValues(outcome(err)).Inc()
	}
	return q, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "not_found"
	default:
		return "error"
	}
}
