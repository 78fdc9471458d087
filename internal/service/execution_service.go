package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExecutionService 订单执行服务
// 负责候选集构建、冷却过滤与订单提交；每条决策最多提交一次，不重试
type ExecutionService struct {
	logger    *zap.Logger
	broker    broker.Broker
	tradeRepo *repo.TradeRepo
	counter   *DailyTradeCounter
	cooldown  *CooldownTracker
	washes    *WashSaleTracker
}

// NewExecutionService 创建订单执行服务
func NewExecutionService(db *gorm.DB, b broker.Broker, counter *DailyTradeCounter, cooldown *CooldownTracker, washes *WashSaleTracker, logger *zap.Logger) *ExecutionService {
	return &ExecutionService{
		logger:    logger,
		broker:    b,
		tradeRepo: repo.NewTradeRepo(db),
		counter:   counter,
		cooldown:  cooldown,
		washes:    washes,
	}
}

// BuildCandidates 合并观察列表与涨幅榜为候选集
// 顺序：股票观察列表 → 加密观察列表 → 涨幅榜；重复符号保留先出现的
func (s *ExecutionService) BuildCandidates(watchlist, cryptoWatchlist []string, movers []broker.Instrument) []broker.Instrument {
	seen := make(map[string]struct{})
	candidates := make([]broker.Instrument, 0, len(watchlist)+len(cryptoWatchlist)+len(movers))

	add := func(inst broker.Instrument) {
		if _, ok := seen[inst.Symbol]; ok {
			return
		}
		seen[inst.Symbol] = struct{}{}
		candidates = append(candidates, inst)
	}

	for _, symbol := range watchlist {
		add(broker.Instrument{Symbol: symbol, Class: broker.AssetClassEquity})
	}
	for _, symbol := range cryptoWatchlist {
		add(broker.Instrument{Symbol: symbol, Class: broker.AssetClassCrypto})
	}
	for _, inst := range movers {
		add(inst)
	}
	return candidates
}

// SelectEligible 冷却过滤，返回本周期可进入决策的标的
func (s *ExecutionService) SelectEligible(candidates []broker.Instrument, now time.Time) []broker.Instrument {
	eligible := make([]broker.Instrument, 0, len(candidates))
	for _, inst := range candidates {
		if s.cooldown.IsEligible(inst.Symbol, models.AssetClass(inst.Class), now) {
			eligible = append(eligible, inst)
		} else {
			s.logger.Info("symbol skipped by cooldown", zap.String("symbol", inst.Symbol))
		}
	}
	return eligible
}

// Submit 提交一条已通过风控的决策
// 计数先于提交发生：无论券商结果如何，该次尝试都消耗当日额度
// 恰好一次提交，任何失败都不重试；所有结果都落交易记录
func (s *ExecutionService) Submit(ctx context.Context, decision models.Decision, portfolio *PortfolioSnapshot, now time.Time) (*models.Trade, error) {
	if decision.Action != models.ActionBuy && decision.Action != models.ActionSell {
		return nil, fmt.Errorf("unsubmittable action: %s", decision.Action)
	}

	s.counter.Increment(ctx)

	intent := broker.OrderIntent{
		Symbol:   decision.Symbol,
		Class:    broker.AssetClass(decision.AssetClass),
		Side:     broker.OrderSide(decision.Action),
		Quantity: decision.Quantity,
	}

	s.logger.Info("submitting market order",
		zap.String("symbol", decision.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", decision.Quantity))

	trade := models.Trade{
		ID:         ulid.Make().String(),
		DecisionID: decision.ID,
		Symbol:     decision.Symbol,
		AssetClass: decision.AssetClass,
		Side:       decision.Action,
		Quantity:   decision.Quantity,
		TradingDay: TradingDay(now),
		ExecutedAt: now,
	}

	result, err := s.broker.SubmitMarketOrder(ctx, intent)
	if err != nil {
		trade.Status = models.ExecutionStatusError
		trade.ErrorDetail = err.Error()
		s.saveTrade(ctx, &trade)
		return &trade, fmt.Errorf("failed to submit order for %s: %w", decision.Symbol, err)
	}

	trade.OrderID = result.OrderID
	trade.FillPrice = result.FillPrice
	switch result.Status {
	case broker.OrderStatusRejected:
		trade.Status = models.ExecutionStatusRejected
		s.logger.Warn("order rejected by broker",
			zap.String("symbol", decision.Symbol),
			zap.String("order_id", result.OrderID))
	case broker.OrderStatusAccepted:
		// 受理未成交：尚无成交价，不得据此计算盈亏
		trade.Status = models.ExecutionStatusAccepted
		s.logger.Info("order accepted, awaiting fill",
			zap.String("symbol", decision.Symbol),
			zap.String("order_id", result.OrderID))
	default:
		trade.Status = models.ExecutionStatusFilled
	}

	// 卖出确认成交且有成交价时按持仓均价计算已实现盈亏，亏损进入洗售追踪
	if trade.Status == models.ExecutionStatusFilled && trade.FillPrice > 0 && decision.Action == models.ActionSell {
		if pos := portfolio.Position(decision.Symbol); pos != nil && pos.AvgEntryPrice > 0 {
			trade.RealizedPnl = (trade.FillPrice - pos.AvgEntryPrice) * trade.Quantity
			if trade.RealizedPnl < 0 {
				s.washes.RecordLoss(ctx, decision.Symbol, decision.AssetClass, now, trade.RealizedPnl, trade.ID)
			}
		}
	}

	s.saveTrade(ctx, &trade)

	s.logger.Info("order submitted",
		zap.String("symbol", decision.Symbol),
		zap.String("status", string(trade.Status)),
		zap.Float64("fill_price", trade.FillPrice),
		zap.Float64("realized_pnl", trade.RealizedPnl))
	return &trade, nil
}

// saveTrade 落库失败只记日志，不中断周期
func (s *ExecutionService) saveTrade(ctx context.Context, trade *models.Trade) {
	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		s.logger.Error("failed to save trade record",
			zap.String("symbol", trade.Symbol),
			zap.Error(err))
	}
}
