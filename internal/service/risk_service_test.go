package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type riskFixture struct {
	svc     *RiskService
	breaker *CircuitBreaker
	counter *DailyTradeCounter
	washes  *WashSaleTracker
	db      *gorm.DB
}

func newRiskFixture(t *testing.T) *riskFixture {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()

	conf := config.RiskConf{
		MaxPositionPct:         25,
		LowPriceThreshold:      10,
		LowPriceMaxPositionPct: 3,
		MaxPortfolioRiskPct:    80,
		DailyLossLimitPct:      3,
		MaxTradesPerDay:        10,
		MinCashReservePct:      20,
	}

	breaker := NewCircuitBreaker(db, conf.DailyLossLimitPct, logger)
	counter := NewDailyTradeCounter(db, logger)
	washes := NewWashSaleTracker(db, logger)

	return &riskFixture{
		svc:     NewRiskService(conf, breaker, counter, washes, logger),
		breaker: breaker,
		counter: counter,
		washes:  washes,
		db:      db,
	}
}

func testPortfolio(equity, cash float64, positions ...*broker.Position) *PortfolioSnapshot {
	return &PortfolioSnapshot{
		Equity:    equity,
		Cash:      cash,
		Positions: positions,
		TakenAt:   time.Now(),
	}
}

func buyDecision(symbol string, class models.AssetClass, qty float64) models.Decision {
	return models.Decision{
		Symbol:     symbol,
		AssetClass: class,
		Action:     models.ActionBuy,
		Confidence: models.ConfidenceMedium,
		Quantity:   qty,
		Reasoning:  "momentum entry",
	}
}

func TestEvaluate_HoldPassesUntouched(t *testing.T) {
	f := newRiskFixture(t)
	f.breaker.Rollover(context.Background(), time.Now(), 100000)
	f.breaker.Update(context.Background(), 90000) // 触发熔断

	d := models.Decision{Symbol: "AAPL", AssetClass: models.AssetClassEquity, Action: models.ActionHold}
	got := f.svc.Evaluate(d, testPortfolio(100000, 100000), 200, time.Now())

	assert.Equal(t, models.ActionHold, got.Action)
	assert.False(t, got.Vetoed)
	assert.Empty(t, got.RiskNotes)
}

func TestEvaluate_CircuitBreakerVetoesEverything(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	f.breaker.Rollover(ctx, time.Now(), 100000)
	f.breaker.Update(ctx, 96000) // -4% <= -3%

	require.True(t, f.breaker.Tripped())

	buy := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 10), testPortfolio(96000, 96000), 200, time.Now())
	assert.True(t, buy.Vetoed)
	assert.Equal(t, models.ActionHold, buy.Action)
	assert.Equal(t, float64(0), buy.Quantity)
	assert.Contains(t, buy.RiskNotes, ReasonCircuitBreaker)

	sell := models.Decision{Symbol: "BTC/USD", AssetClass: models.AssetClassCrypto, Action: models.ActionSell, Quantity: 1}
	got := f.svc.Evaluate(sell, testPortfolio(96000, 96000), 60000, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonCircuitBreaker)
}

func TestEvaluate_BreakerNotTrippedAboveThreshold(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	f.breaker.Rollover(ctx, time.Now(), 100000)
	f.breaker.Update(ctx, 97100) // -2.9%

	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 10), testPortfolio(97100, 97100), 100, time.Now())
	assert.False(t, got.Vetoed)
}

func TestEvaluate_DailyTradeCap(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	f.breaker.Rollover(ctx, time.Now(), 100000)
	f.counter.Rollover(ctx, time.Now())

	for i := 0; i < 10; i++ {
		f.counter.Increment(ctx)
	}

	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 1), testPortfolio(100000, 100000), 100, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonDailyTradeCap)

	// 卖出同样受限
	sell := models.Decision{Symbol: "AAPL", AssetClass: models.AssetClassEquity, Action: models.ActionSell, Quantity: 1}
	got = f.svc.Evaluate(sell, testPortfolio(100000, 100000), 100, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonDailyTradeCap)
}

func TestEvaluate_PositionSizeBoundary(t *testing.T) {
	f := newRiskFixture(t)
	portfolio := testPortfolio(100000, 100000)

	// 恰好等于上限（25%）放行
	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 125), portfolio, 200, time.Now()) // 25000
	assert.False(t, got.Vetoed)

	// 严格超出否决
	got = f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 125.0005), portfolio, 200, time.Now()) // 25000.01
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonPositionSize)
}

func TestEvaluate_PositionSizeIncludesExisting(t *testing.T) {
	f := newRiskFixture(t)
	portfolio := testPortfolio(100000, 80000, &broker.Position{
		Symbol: "AAPL", Class: broker.AssetClassEquity,
		Quantity: 100, MarketValue: 20000,
	})

	// 现有20000 + 拟买入6000 > 25000
	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 30), portfolio, 200, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonPositionSize)

	// 现有20000 + 拟买入4000 = 24000 放行
	got = f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 20), portfolio, 200, time.Now())
	assert.False(t, got.Vetoed)
}

func TestEvaluate_LowPriceTier(t *testing.T) {
	f := newRiskFixture(t)
	portfolio := testPortfolio(100000, 100000)

	// $9.99 低于阈值，适用3%上限：3200 > 3000 否决
	got := f.svc.Evaluate(buyDecision("PENN", models.AssetClassEquity, 320.3), portfolio, 9.99, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonPositionSize)

	// $10 不低于阈值，适用常规档
	got = f.svc.Evaluate(buyDecision("PENN", models.AssetClassEquity, 320), portfolio, 10, time.Now())
	assert.False(t, got.Vetoed)
}

func TestEvaluate_PortfolioRisk(t *testing.T) {
	f := newRiskFixture(t)
	portfolio := testPortfolio(100000, 25000, &broker.Position{
		Symbol: "MSFT", Class: broker.AssetClassEquity,
		Quantity: 200, MarketValue: 78000,
	})

	// 78000 + 3000 > 80000
	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 15), portfolio, 200, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonPortfolioRisk)

	// 78000 + 2000 = 80000 恰好等于上限放行
	got = f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 10), portfolio, 200, time.Now())
	assert.False(t, got.Vetoed)
}

func TestEvaluate_CashReserve(t *testing.T) {
	f := newRiskFixture(t)
	// 净值100000，现金22000，储备要求20000
	portfolio := testPortfolio(100000, 22000, &broker.Position{
		Symbol: "MSFT", Class: broker.AssetClassEquity,
		Quantity: 100, MarketValue: 10000,
	})

	// 买入2500后剩19500 < 20000
	got := f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 12.5), portfolio, 200, time.Now())
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonCashReserve)

	// 买入2000后剩20000 放行
	got = f.svc.Evaluate(buyDecision("AAPL", models.AssetClassEquity, 10), portfolio, 200, time.Now())
	assert.False(t, got.Vetoed)
}

func TestEvaluate_WashSale(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	now := time.Now()

	f.washes.RecordLoss(ctx, "TSLA", models.AssetClassEquity, now.AddDate(0, 0, -10), -500, "trade-1")

	got := f.svc.Evaluate(buyDecision("TSLA", models.AssetClassEquity, 5), testPortfolio(100000, 100000), 200, now)
	assert.True(t, got.Vetoed)
	assert.Contains(t, got.RiskNotes, ReasonWashSale)

	// 卖出不受洗售限制
	sell := models.Decision{Symbol: "TSLA", AssetClass: models.AssetClassEquity, Action: models.ActionSell, Quantity: 5}
	got = f.svc.Evaluate(sell, testPortfolio(100000, 100000), 200, now)
	assert.False(t, got.Vetoed)

	// 加密资产不受洗售限制
	got = f.svc.Evaluate(buyDecision("BTC/USD", models.AssetClassCrypto, 0.01), testPortfolio(100000, 100000), 60000, now)
	assert.False(t, got.Vetoed)
}

func TestEvaluate_RuleOrderShortCircuits(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	now := time.Now()

	// 同时满足熔断、日限与洗售条件
	f.breaker.Rollover(ctx, now, 100000)
	f.breaker.Update(ctx, 90000)
	f.counter.Rollover(ctx, now)
	for i := 0; i < 10; i++ {
		f.counter.Increment(ctx)
	}
	f.washes.RecordLoss(ctx, "TSLA", models.AssetClassEquity, now.AddDate(0, 0, -1), -100, "trade-1")

	got := f.svc.Evaluate(buyDecision("TSLA", models.AssetClassEquity, 1), testPortfolio(90000, 90000), 200, now)
	assert.True(t, got.Vetoed)
	// 只命中第一条规则
	assert.Contains(t, got.RiskNotes, ReasonCircuitBreaker)
	assert.NotContains(t, got.RiskNotes, ReasonDailyTradeCap)
	assert.NotContains(t, got.RiskNotes, ReasonWashSale)
	assert.Equal(t, 1, strings.Count(got.RiskNotes, models.VetoMarker))
}

func TestEvaluate_VetoPreservesReasoning(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()
	f.breaker.Rollover(ctx, time.Now(), 100000)
	f.breaker.Update(ctx, 90000)

	d := buyDecision("AAPL", models.AssetClassEquity, 10)
	d.RiskNotes = "elevated volatility"
	got := f.svc.Evaluate(d, testPortfolio(90000, 90000), 200, time.Now())

	assert.Equal(t, "momentum entry", got.Reasoning)
	assert.Equal(t, "elevated volatility; "+models.VetoMarker+": "+ReasonCircuitBreaker, got.RiskNotes)
}
