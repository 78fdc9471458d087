package broker

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// PaperBroker 纸面券商（模拟交易）
// 行情走真实数据源，账户、持仓与成交在内存中模拟
type PaperBroker struct {
	dataSource Broker // 真实行情来源
	logger     *zap.Logger

	cash      float64
	positions map[string]*Position // symbol -> position
	orderSeq  int64                // 模拟订单ID计数器
	mu        sync.RWMutex
}

// NewPaperBroker 创建纸面券商
func NewPaperBroker(dataSource Broker, initialCash float64, logger *zap.Logger) *PaperBroker {
	return &PaperBroker{
		dataSource: dataSource,
		logger:     logger,
		cash:       initialCash,
		positions:  make(map[string]*Position),
		orderSeq:   1000000, // 从1000000开始的模拟订单ID
	}
}

var _ Broker = (*PaperBroker)(nil)

// GetLatestQuote 获取最新报价（真实数据）
func (p *PaperBroker) GetLatestQuote(ctx context.Context, instrument Instrument) (*Quote, error) {
	return p.dataSource.GetLatestQuote(ctx, instrument)
}

// GetDailyBars 获取日线K线（真实数据）
func (p *PaperBroker) GetDailyBars(ctx context.Context, instrument Instrument, limit int) ([]*Bar, error) {
	return p.dataSource.GetDailyBars(ctx, instrument, limit)
}

// GetTopMovers 获取涨幅榜（真实数据）
func (p *PaperBroker) GetTopMovers(ctx context.Context, limit int) ([]Instrument, error) {
	return p.dataSource.GetTopMovers(ctx, limit)
}

// GetNews 获取新闻（真实数据）
func (p *PaperBroker) GetNews(ctx context.Context, symbol string, limit int) ([]*NewsArticle, error) {
	return p.dataSource.GetNews(ctx, symbol, limit)
}

// GetAccount 获取模拟账户信息
func (p *PaperBroker) GetAccount(ctx context.Context) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	marketValue := 0.0
	for _, pos := range p.positions {
		marketValue += pos.MarketValue
	}
	equity := p.cash + marketValue

	p.logger.Debug("paper account",
		zap.Float64("cash", p.cash),
		zap.Float64("market_value", marketValue),
		zap.Float64("equity", equity))

	return &Account{
		Equity:      equity,
		Cash:        p.cash,
		BuyingPower: p.cash,
		LastEquity:  equity,
	}, nil
}

// GetPositions 获取模拟持仓（按最新价刷新市值）
func (p *PaperBroker) GetPositions(ctx context.Context) ([]*Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		quote, err := p.dataSource.GetLatestQuote(ctx, Instrument{Symbol: pos.Symbol, Class: pos.Class})
		if err != nil {
			p.logger.Warn("failed to refresh paper position price",
				zap.String("symbol", pos.Symbol),
				zap.Error(err))
		} else {
			pos.CurrentPrice = quote.Price
		}

		pos.MarketValue = pos.Quantity * pos.CurrentPrice
		pos.UnrealizedPnl = (pos.CurrentPrice - pos.AvgEntryPrice) * pos.Quantity
		if pos.AvgEntryPrice > 0 {
			pos.UnrealizedPnlPct = (pos.CurrentPrice - pos.AvgEntryPrice) / pos.AvgEntryPrice * 100
		}

		snapshot := *pos
		result = append(result, &snapshot)
	}
	return result, nil
}

// SubmitMarketOrder 模拟市价单：按最新成交价立即全额成交
func (p *PaperBroker) SubmitMarketOrder(ctx context.Context, intent OrderIntent) (*OrderResult, error) {
	if intent.Quantity <= 0 {
		return nil, fmt.Errorf("paper order %s: invalid quantity %f", intent.Symbol, intent.Quantity)
	}

	quote, err := p.dataSource.GetLatestQuote(ctx, Instrument{Symbol: intent.Symbol, Class: intent.Class})
	if err != nil {
		return nil, fmt.Errorf("paper order %s: %w", intent.Symbol, err)
	}
	price := quote.Price

	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderSeq++
	orderID := strconv.FormatInt(p.orderSeq, 10)

	switch intent.Side {
	case OrderSideBuy:
		cost := intent.Quantity * price
		if cost > p.cash {
			// 资金不足时模拟券商拒单
			p.logger.Warn("paper order rejected: insufficient cash",
				zap.String("symbol", intent.Symbol),
				zap.Float64("cost", cost),
				zap.Float64("cash", p.cash))
			return &OrderResult{
				OrderID:  orderID,
				Symbol:   intent.Symbol,
				Side:     intent.Side,
				Quantity: intent.Quantity,
				Status:   OrderStatusRejected,
			}, nil
		}

		p.cash -= cost
		pos, ok := p.positions[intent.Symbol]
		if !ok {
			p.positions[intent.Symbol] = &Position{
				Symbol:        intent.Symbol,
				Class:         intent.Class,
				Quantity:      intent.Quantity,
				AvgEntryPrice: price,
				CurrentPrice:  price,
				MarketValue:   cost,
			}
		} else {
			// 加权平均开仓价
			totalCost := pos.AvgEntryPrice*pos.Quantity + cost
			pos.Quantity += intent.Quantity
			pos.AvgEntryPrice = totalCost / pos.Quantity
			pos.CurrentPrice = price
			pos.MarketValue = pos.Quantity * price
		}

	case OrderSideSell:
		pos, ok := p.positions[intent.Symbol]
		if !ok || pos.Quantity < intent.Quantity {
			p.logger.Warn("paper order rejected: insufficient position",
				zap.String("symbol", intent.Symbol),
				zap.Float64("quantity", intent.Quantity))
			return &OrderResult{
				OrderID:  orderID,
				Symbol:   intent.Symbol,
				Side:     intent.Side,
				Quantity: intent.Quantity,
				Status:   OrderStatusRejected,
			}, nil
		}

		p.cash += intent.Quantity * price
		pos.Quantity -= intent.Quantity
		pos.CurrentPrice = price
		pos.MarketValue = pos.Quantity * price
		if pos.Quantity <= 0 {
			delete(p.positions, intent.Symbol)
		}

	default:
		return nil, fmt.Errorf("paper order %s: unknown side %q", intent.Symbol, intent.Side)
	}

	p.logger.Info("paper order filled",
		zap.String("symbol", intent.Symbol),
		zap.String("side", intent.Side.String()),
		zap.Float64("quantity", intent.Quantity),
		zap.Float64("price", price))

	return &OrderResult{
		OrderID:   orderID,
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		FillPrice: price,
		Status:    OrderStatusFilled,
	}, nil
}
