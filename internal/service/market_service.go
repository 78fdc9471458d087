package service

import (
	"context"
	"fmt"

	"github.com/dushixiang/helmsman/pkg/broker"
	"go.uber.org/zap"
)

// 指标计算需要的最少日线根数（MACD慢线26加信号线9）
const dailyBarLimit = 35

// MarketService 行情服务
// 封装券商行情接口，单个标的失败只跳过该标的，不影响整个周期
type MarketService struct {
	logger *zap.Logger
	broker broker.Broker
}

// NewMarketService 创建行情服务
func NewMarketService(b broker.Broker, logger *zap.Logger) *MarketService {
	return &MarketService{
		logger: logger,
		broker: b,
	}
}

// SymbolData 单个标的的周期行情包
type SymbolData struct {
	Instrument broker.Instrument
	Quote      *broker.Quote
	Bars       []*broker.Bar
	News       []*broker.NewsArticle
}

// FetchSymbolData 拉取单个标的的报价、日线与新闻
// 报价缺失视为失败；日线与新闻缺失降级为空，指标侧自行处理
func (s *MarketService) FetchSymbolData(ctx context.Context, instrument broker.Instrument) (*SymbolData, error) {
	quote, err := s.broker.GetLatestQuote(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", instrument.Symbol, err)
	}
	if quote.Price <= 0 {
		return nil, fmt.Errorf("invalid quote price for %s: %v", instrument.Symbol, quote.Price)
	}

	bars, err := s.broker.GetDailyBars(ctx, instrument, dailyBarLimit)
	if err != nil {
		s.logger.Warn("failed to get daily bars",
			zap.String("symbol", instrument.Symbol),
			zap.Error(err))
		bars = nil
	}

	news, err := s.broker.GetNews(ctx, instrument.Symbol, 3)
	if err != nil {
		s.logger.Warn("failed to get news",
			zap.String("symbol", instrument.Symbol),
			zap.Error(err))
		news = nil
	}

	return &SymbolData{
		Instrument: instrument,
		Quote:      quote,
		Bars:       bars,
		News:       news,
	}, nil
}

// DiscoverMovers 拉取当日涨幅榜标的
func (s *MarketService) DiscoverMovers(ctx context.Context, limit int) []broker.Instrument {
	movers, err := s.broker.GetTopMovers(ctx, limit)
	if err != nil {
		s.logger.Warn("failed to discover top movers", zap.Error(err))
		return nil
	}
	return movers
}
