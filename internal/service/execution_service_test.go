package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeBroker 可编程的券商桩
type fakeBroker struct {
	submitCalls int
	submitErr   error
	result      *broker.OrderResult
}

func (f *fakeBroker) GetLatestQuote(ctx context.Context, instrument broker.Instrument) (*broker.Quote, error) {
	return &broker.Quote{Symbol: instrument.Symbol, Price: 100, Timestamp: time.Now()}, nil
}

func (f *fakeBroker) GetDailyBars(ctx context.Context, instrument broker.Instrument, limit int) ([]*broker.Bar, error) {
	return nil, nil
}

func (f *fakeBroker) GetTopMovers(ctx context.Context, limit int) ([]broker.Instrument, error) {
	return nil, nil
}

func (f *fakeBroker) GetNews(ctx context.Context, symbol string, limit int) ([]*broker.NewsArticle, error) {
	return nil, nil
}

func (f *fakeBroker) GetAccount(ctx context.Context) (*broker.Account, error) {
	return &broker.Account{Equity: 100000, Cash: 100000, BuyingPower: 100000, LastEquity: 100000}, nil
}

func (f *fakeBroker) GetPositions(ctx context.Context) ([]*broker.Position, error) {
	return nil, nil
}

func (f *fakeBroker) SubmitMarketOrder(ctx context.Context, intent broker.OrderIntent) (*broker.OrderResult, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &broker.OrderResult{
		OrderID:   "order-1",
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		FillPrice: 100,
		Status:    broker.OrderStatusFilled,
	}, nil
}

type executionFixture struct {
	svc      *ExecutionService
	broker   *fakeBroker
	counter  *DailyTradeCounter
	cooldown *CooldownTracker
	washes   *WashSaleTracker
	db       *gorm.DB
}

func newExecutionFixture(t *testing.T) *executionFixture {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()
	fb := &fakeBroker{}

	counter := NewDailyTradeCounter(db, logger)
	cooldown := NewCooldownTracker(db, logger)
	washes := NewWashSaleTracker(db, logger)
	counter.Rollover(context.Background(), time.Now())

	return &executionFixture{
		svc:      NewExecutionService(db, fb, counter, cooldown, washes, logger),
		broker:   fb,
		counter:  counter,
		cooldown: cooldown,
		washes:   washes,
		db:       db,
	}
}

func submittable(symbol string, class models.AssetClass, action models.Action, qty float64) models.Decision {
	return models.Decision{
		ID:         fmt.Sprintf("dec-%s", symbol),
		Symbol:     symbol,
		AssetClass: class,
		Action:     action,
		Quantity:   qty,
	}
}

func TestBuildCandidates_DedupeKeepsFirst(t *testing.T) {
	f := newExecutionFixture(t)

	movers := []broker.Instrument{
		{Symbol: "AAPL", Class: broker.AssetClassEquity}, // 已在观察列表
		{Symbol: "NVDA", Class: broker.AssetClassEquity},
	}
	got := f.svc.BuildCandidates([]string{"AAPL", "MSFT"}, []string{"BTC/USD"}, movers)

	require.Len(t, got, 4)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, broker.AssetClassEquity, got[0].Class)
	assert.Equal(t, "MSFT", got[1].Symbol)
	assert.Equal(t, "BTC/USD", got[2].Symbol)
	assert.Equal(t, broker.AssetClassCrypto, got[2].Class)
	assert.Equal(t, "NVDA", got[3].Symbol)
}

func TestSelectEligible_FiltersCooldown(t *testing.T) {
	f := newExecutionFixture(t)
	now := time.Now()

	f.cooldown.RecordDecision("AAPL", models.AssetClassEquity, now)

	candidates := []broker.Instrument{
		{Symbol: "AAPL", Class: broker.AssetClassEquity},
		{Symbol: "MSFT", Class: broker.AssetClassEquity},
	}
	got := f.svc.SelectEligible(candidates, now.Add(5*time.Minute))

	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Symbol)
}

func TestSubmit_FilledTrade(t *testing.T) {
	f := newExecutionFixture(t)
	now := time.Now()

	trade, err := f.svc.Submit(context.Background(),
		submittable("AAPL", models.AssetClassEquity, models.ActionBuy, 10),
		testPortfolio(100000, 100000), now)
	require.NoError(t, err)

	assert.Equal(t, 1, f.broker.submitCalls)
	assert.Equal(t, models.ExecutionStatusFilled, trade.Status)
	assert.Equal(t, float64(100), trade.FillPrice)
	assert.Equal(t, "order-1", trade.OrderID)
	assert.Equal(t, 1, f.counter.Count())

	var saved models.Trade
	require.NoError(t, f.db.First(&saved, "symbol = ?", "AAPL").Error)
	assert.Equal(t, models.ExecutionStatusFilled, saved.Status)
	assert.Equal(t, TradingDay(now), saved.TradingDay)
}

func TestSubmit_BrokerErrorCountsAndNoRetry(t *testing.T) {
	f := newExecutionFixture(t)
	f.broker.submitErr = fmt.Errorf("connection reset")

	trade, err := f.svc.Submit(context.Background(),
		submittable("AAPL", models.AssetClassEquity, models.ActionBuy, 10),
		testPortfolio(100000, 100000), time.Now())
	require.Error(t, err)

	// 恰好一次提交，失败不重试；额度照样消耗
	assert.Equal(t, 1, f.broker.submitCalls)
	assert.Equal(t, 1, f.counter.Count())
	assert.Equal(t, models.ExecutionStatusError, trade.Status)
	assert.Contains(t, trade.ErrorDetail, "connection reset")
}

func TestSubmit_RejectedCountsTowardCap(t *testing.T) {
	f := newExecutionFixture(t)
	f.broker.result = &broker.OrderResult{
		OrderID: "order-2", Symbol: "AAPL",
		Side: broker.OrderSideBuy, Quantity: 10,
		Status: broker.OrderStatusRejected,
	}

	trade, err := f.svc.Submit(context.Background(),
		submittable("AAPL", models.AssetClassEquity, models.ActionBuy, 10),
		testPortfolio(100000, 100000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusRejected, trade.Status)
	assert.Equal(t, 1, f.counter.Count())
}

func TestSubmit_AcceptedSellDoesNotRealizePnl(t *testing.T) {
	f := newExecutionFixture(t)
	now := time.Now()
	f.broker.result = &broker.OrderResult{
		OrderID: "order-3", Symbol: "TSLA",
		Side: broker.OrderSideSell, Quantity: 10,
		FillPrice: 0, Status: broker.OrderStatusAccepted,
	}

	portfolio := testPortfolio(100000, 50000, &broker.Position{
		Symbol: "TSLA", Class: broker.AssetClassEquity,
		Quantity: 20, AvgEntryPrice: 150, MarketValue: 3000,
	})

	// 受理未成交：无成交价，不得记为成交，更不得虚构亏损
	trade, err := f.svc.Submit(context.Background(),
		submittable("TSLA", models.AssetClassEquity, models.ActionSell, 10),
		portfolio, now)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusAccepted, trade.Status)
	assert.Equal(t, float64(0), trade.RealizedPnl)
	assert.False(t, f.washes.HasRecentLoss("TSLA", now))
	assert.Equal(t, 1, f.counter.Count())

	lossSaleRepo := repo.NewLossSaleRepo(f.db)
	records, err := lossSaleRepo.FindSince(context.Background(), now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmit_SellLossFeedsWashSaleTracker(t *testing.T) {
	f := newExecutionFixture(t)
	now := time.Now()

	portfolio := testPortfolio(100000, 50000, &broker.Position{
		Symbol: "TSLA", Class: broker.AssetClassEquity,
		Quantity: 20, AvgEntryPrice: 150, MarketValue: 2000,
	})

	// 成交价100，均价150，卖10股实现亏损-500
	trade, err := f.svc.Submit(context.Background(),
		submittable("TSLA", models.AssetClassEquity, models.ActionSell, 10),
		portfolio, now)
	require.NoError(t, err)

	assert.Equal(t, float64(-500), trade.RealizedPnl)
	assert.True(t, f.washes.HasRecentLoss("TSLA", now))

	lossSaleRepo := repo.NewLossSaleRepo(f.db)
	records, err := lossSaleRepo.FindSince(context.Background(), now.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, trade.ID, records[0].TradeID)
}

func TestSubmit_SellProfitNotTracked(t *testing.T) {
	f := newExecutionFixture(t)
	now := time.Now()

	portfolio := testPortfolio(100000, 50000, &broker.Position{
		Symbol: "TSLA", Class: broker.AssetClassEquity,
		Quantity: 20, AvgEntryPrice: 80, MarketValue: 2000,
	})

	trade, err := f.svc.Submit(context.Background(),
		submittable("TSLA", models.AssetClassEquity, models.ActionSell, 10),
		portfolio, now)
	require.NoError(t, err)

	assert.Equal(t, float64(200), trade.RealizedPnl)
	assert.False(t, f.washes.HasRecentLoss("TSLA", now))
}

func TestSubmit_RejectsHold(t *testing.T) {
	f := newExecutionFixture(t)

	_, err := f.svc.Submit(context.Background(),
		submittable("AAPL", models.AssetClassEquity, models.ActionHold, 0),
		testPortfolio(100000, 100000), time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, f.broker.submitCalls)
	assert.Equal(t, 0, f.counter.Count())
}
