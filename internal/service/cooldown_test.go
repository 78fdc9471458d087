package service

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCooldown_EquityWindow(t *testing.T) {
	tracker := NewCooldownTracker(newTestDB(t), zap.NewNop())
	now := time.Now()

	assert.True(t, tracker.IsEligible("AAPL", models.AssetClassEquity, now))

	tracker.RecordDecision("AAPL", models.AssetClassEquity, now)

	assert.False(t, tracker.IsEligible("AAPL", models.AssetClassEquity, now.Add(19*time.Minute)))
	// 恰好20分钟允许
	assert.True(t, tracker.IsEligible("AAPL", models.AssetClassEquity, now.Add(20*time.Minute)))
	// 其他标的不受影响
	assert.True(t, tracker.IsEligible("MSFT", models.AssetClassEquity, now))
}

func TestCooldown_CryptoExempt(t *testing.T) {
	tracker := NewCooldownTracker(newTestDB(t), zap.NewNop())
	now := time.Now()

	tracker.RecordDecision("BTC/USD", models.AssetClassCrypto, now)

	// 记录为空操作，始终允许
	assert.True(t, tracker.IsEligible("BTC/USD", models.AssetClassCrypto, now))
	assert.True(t, tracker.IsEligible("BTC/USD", models.AssetClassCrypto, now.Add(time.Second)))
}

func TestCooldown_Rehydrate(t *testing.T) {
	db := newTestDB(t)
	decisionRepo := repo.NewDecisionRepo(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	// 同标的两条决策，取最近一条
	for _, offset := range []time.Duration{-30 * time.Minute, -5 * time.Minute} {
		require.NoError(t, decisionRepo.Create(ctx, &models.Decision{
			ID:         ulid.Make().String(),
			Iteration:  1,
			Symbol:     "AAPL",
			AssetClass: models.AssetClassEquity,
			Action:     models.ActionHold,
			ExecutedAt: now.Add(offset),
		}))
	}
	// 只有过期决策的标的恢复后立即可评估
	require.NoError(t, decisionRepo.Create(ctx, &models.Decision{
		ID:         ulid.Make().String(),
		Iteration:  1,
		Symbol:     "MSFT",
		AssetClass: models.AssetClassEquity,
		Action:     models.ActionBuy,
		Quantity:   5,
		ExecutedAt: now.Add(-25 * time.Minute),
	}))
	// 加密决策不进入冷却表
	require.NoError(t, decisionRepo.Create(ctx, &models.Decision{
		ID:         ulid.Make().String(),
		Iteration:  1,
		Symbol:     "BTC/USD",
		AssetClass: models.AssetClassCrypto,
		Action:     models.ActionBuy,
		Quantity:   0.1,
		ExecutedAt: now,
	}))

	tracker := NewCooldownTracker(db, zap.NewNop())
	require.NoError(t, tracker.Rehydrate(ctx))

	assert.False(t, tracker.IsEligible("AAPL", models.AssetClassEquity, now))
	assert.True(t, tracker.IsEligible("AAPL", models.AssetClassEquity, now.Add(15*time.Minute)))
	assert.True(t, tracker.IsEligible("MSFT", models.AssetClassEquity, now))
	assert.True(t, tracker.IsEligible("BTC/USD", models.AssetClassCrypto, now))
}
