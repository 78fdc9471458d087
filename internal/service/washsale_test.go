package service

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWashSale_WindowBoundary(t *testing.T) {
	tracker := NewWashSaleTracker(newTestDB(t), zap.NewNop())
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)

	tracker.RecordLoss(ctx, "TSLA", models.AssetClassEquity, now.AddDate(0, 0, -30), -200, "trade-1")

	// 第30天仍在窗口内
	assert.True(t, tracker.HasRecentLoss("TSLA", now))
	// 第31天窗口解除
	assert.False(t, tracker.HasRecentLoss("TSLA", now.AddDate(0, 0, 1)))
}

func TestWashSale_SameDayLoss(t *testing.T) {
	tracker := NewWashSaleTracker(newTestDB(t), zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	tracker.RecordLoss(ctx, "TSLA", models.AssetClassEquity, now, -50, "trade-1")
	assert.True(t, tracker.HasRecentLoss("TSLA", now))
}

func TestWashSale_IgnoresProfitAndCrypto(t *testing.T) {
	db := newTestDB(t)
	tracker := NewWashSaleTracker(db, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	// 盈利卖出不记录
	tracker.RecordLoss(ctx, "AAPL", models.AssetClassEquity, now, 300, "trade-1")
	assert.False(t, tracker.HasRecentLoss("AAPL", now))

	// 加密亏损不记录
	tracker.RecordLoss(ctx, "BTC/USD", models.AssetClassCrypto, now, -1000, "trade-2")
	assert.False(t, tracker.HasRecentLoss("BTC/USD", now))

	var count int64
	require.NoError(t, db.Model(&models.LossSale{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWashSale_Rehydrate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	seed := NewWashSaleTracker(db, zap.NewNop())
	seed.RecordLoss(ctx, "TSLA", models.AssetClassEquity, now.AddDate(0, 0, -5), -120, "trade-1")
	seed.RecordLoss(ctx, "NVDA", models.AssetClassEquity, now.AddDate(0, 0, -40), -80, "trade-2")

	lossSaleRepo := repo.NewLossSaleRepo(db)
	records, err := lossSaleRepo.FindSince(ctx, now.AddDate(0, 0, -31))
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 重启后只恢复窗口内的记录
	restored := NewWashSaleTracker(db, zap.NewNop())
	require.NoError(t, restored.Rehydrate(ctx, now))

	assert.True(t, restored.HasRecentLoss("TSLA", now))
	assert.False(t, restored.HasRecentLoss("NVDA", now))
}
