package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// quoteSource 固定价格的行情桩
type quoteSource struct {
	prices map[string]float64
}

func (q *quoteSource) GetLatestQuote(ctx context.Context, instrument Instrument) (*Quote, error) {
	return &Quote{Symbol: instrument.Symbol, Price: q.prices[instrument.Symbol], Timestamp: time.Now()}, nil
}

func (q *quoteSource) GetDailyBars(ctx context.Context, instrument Instrument, limit int) ([]*Bar, error) {
	return nil, nil
}

func (q *quoteSource) GetTopMovers(ctx context.Context, limit int) ([]Instrument, error) {
	return nil, nil
}

func (q *quoteSource) GetNews(ctx context.Context, symbol string, limit int) ([]*NewsArticle, error) {
	return nil, nil
}

func (q *quoteSource) GetAccount(ctx context.Context) (*Account, error) {
	return nil, nil
}

func (q *quoteSource) GetPositions(ctx context.Context) ([]*Position, error) {
	return nil, nil
}

func (q *quoteSource) SubmitMarketOrder(ctx context.Context, intent OrderIntent) (*OrderResult, error) {
	return nil, nil
}

func newPaperFixture(prices map[string]float64, cash float64) *PaperBroker {
	return NewPaperBroker(&quoteSource{prices: prices}, cash, zap.NewNop())
}

func TestPaperBroker_BuyAndAccount(t *testing.T) {
	p := newPaperFixture(map[string]float64{"AAPL": 100}, 10000)
	ctx := context.Background()

	result, err := p.SubmitMarketOrder(ctx, OrderIntent{
		Symbol: "AAPL", Class: AssetClassEquity, Side: OrderSideBuy, Quantity: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, result.Status)
	assert.Equal(t, float64(100), result.FillPrice)

	account, err := p.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(8000), account.Cash)
	assert.Equal(t, float64(10000), account.Equity)

	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, float64(20), positions[0].Quantity)
	assert.Equal(t, float64(100), positions[0].AvgEntryPrice)
}

func TestPaperBroker_WeightedAverageEntry(t *testing.T) {
	p := newPaperFixture(map[string]float64{"AAPL": 100}, 10000)
	ctx := context.Background()

	_, err := p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 10})
	require.NoError(t, err)

	// 价格上涨后加仓
	p.dataSource.(*quoteSource).prices["AAPL"] = 200
	_, err = p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 10})
	require.NoError(t, err)

	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, float64(20), positions[0].Quantity)
	assert.Equal(t, float64(150), positions[0].AvgEntryPrice)
}

func TestPaperBroker_RejectsInsufficientCash(t *testing.T) {
	p := newPaperFixture(map[string]float64{"AAPL": 100}, 500)

	result, err := p.SubmitMarketOrder(context.Background(), OrderIntent{
		Symbol: "AAPL", Side: OrderSideBuy, Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRejected, result.Status)

	account, _ := p.GetAccount(context.Background())
	assert.Equal(t, float64(500), account.Cash)
}

func TestPaperBroker_SellClosesPosition(t *testing.T) {
	p := newPaperFixture(map[string]float64{"AAPL": 100}, 10000)
	ctx := context.Background()

	_, err := p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 10})
	require.NoError(t, err)

	p.dataSource.(*quoteSource).prices["AAPL"] = 120
	result, err := p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideSell, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, result.Status)
	assert.Equal(t, float64(120), result.FillPrice)

	account, _ := p.GetAccount(ctx)
	assert.Equal(t, float64(10200), account.Cash)

	positions, _ := p.GetPositions(ctx)
	assert.Empty(t, positions)
}

func TestPaperBroker_RejectsOversell(t *testing.T) {
	p := newPaperFixture(map[string]float64{"AAPL": 100}, 10000)
	ctx := context.Background()

	_, err := p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 5})
	require.NoError(t, err)

	result, err := p.SubmitMarketOrder(ctx, OrderIntent{Symbol: "AAPL", Side: OrderSideSell, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRejected, result.Status)
}
