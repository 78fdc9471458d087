package service

import (
	"context"
	"sync"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WashSaleTracker 洗售追踪器
// 记录股票标的的亏损卖出，在回看窗口内阻止同标的再次买入
// 加密资产不适用洗售规则，永远不会产生记录
type WashSaleTracker struct {
	logger       *zap.Logger
	lossSaleRepo *repo.LossSaleRepo

	mu        sync.RWMutex
	lossDates map[string][]time.Time // symbol -> 亏损卖出日期
}

// NewWashSaleTracker 创建洗售追踪器
func NewWashSaleTracker(db *gorm.DB, logger *zap.Logger) *WashSaleTracker {
	return &WashSaleTracker{
		logger:       logger,
		lossSaleRepo: repo.NewLossSaleRepo(db),
		lossDates:    make(map[string][]time.Time),
	}
}

// Rehydrate 从亏损卖出记录恢复窗口内的状态（重启后调用）
func (t *WashSaleTracker) Rehydrate(ctx context.Context, now time.Time) error {
	since := now.AddDate(0, 0, -(config.WashSaleWindowDays + 1))
	records, err := t.lossSaleRepo.FindSince(ctx, since)
	if err != nil {
		return err
	}

	dates := make(map[string][]time.Time)
	for _, r := range records {
		dates[r.Symbol] = append(dates[r.Symbol], r.SaleDate)
	}

	t.mu.Lock()
	t.lossDates = dates
	t.mu.Unlock()

	t.logger.Info("wash sale tracker rehydrated", zap.Int("records", len(records)))
	return nil
}

// RecordLoss 记录一次已实现亏损的卖出
// 仅对股票类资产、amount为负时生效；写库失败不影响内存状态（会话内继续有效）
func (t *WashSaleTracker) RecordLoss(ctx context.Context, symbol string, class models.AssetClass, date time.Time, amount float64, tradeID string) {
	if !class.WashSaleApplies() || amount >= 0 {
		return
	}

	t.mu.Lock()
	t.lossDates[symbol] = append(t.lossDates[symbol], date)
	t.mu.Unlock()

	record := models.LossSale{
		ID:           ulid.Make().String(),
		Symbol:       symbol,
		SaleDate:     date,
		RealizedLoss: amount,
		TradeID:      tradeID,
	}
	if err := t.lossSaleRepo.Create(ctx, &record); err != nil {
		t.logger.Error("failed to persist loss sale record",
			zap.String("symbol", symbol),
			zap.Error(err))
	}

	t.logger.Info("loss sale recorded",
		zap.String("symbol", symbol),
		zap.Float64("realized_loss", amount),
		zap.Time("sale_date", date))
}

// HasRecentLoss 标的在asOf往前30个自然日内（含第30天）是否有亏损卖出
func (t *WashSaleTracker) HasRecentLoss(symbol string, asOf time.Time) bool {
	t.mu.RLock()
	dates := t.lossDates[symbol]
	t.mu.RUnlock()

	asOfDay := truncateToDay(asOf)
	for _, d := range dates {
		days := int(asOfDay.Sub(truncateToDay(d)).Hours() / 24)
		if days >= 0 && days <= config.WashSaleWindowDays {
			return true
		}
	}
	return false
}

// truncateToDay 截断到当日零点（UTC日历），使窗口按整天计算
func truncateToDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
