package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradingAccountService 交易账户管理服务
type TradingAccountService struct {
	logger *zap.Logger

	*orz.Service
	*repo.AccountHistoryRepo

	broker broker.Broker
}

// NewTradingAccountService 创建交易账户服务
func NewTradingAccountService(db *gorm.DB, b broker.Broker, logger *zap.Logger) *TradingAccountService {
	return &TradingAccountService{
		logger:             logger,
		Service:            orz.NewService(db),
		AccountHistoryRepo: repo.NewAccountHistoryRepo(db),
		broker:             b,
	}
}

// PortfolioSnapshot 单周期的账户快照，取到后不再变化
type PortfolioSnapshot struct {
	Equity          float64            `json:"equity"`            // 账户净值
	Cash            float64            `json:"cash"`              // 现金
	BuyingPower     float64            `json:"buying_power"`      // 购买力
	DailyPnl        float64            `json:"daily_pnl"`         // 当日盈亏
	DailyPnlPercent float64            `json:"daily_pnl_percent"` // 当日盈亏百分比
	Positions       []*broker.Position `json:"positions"`         // 持仓明细
	TakenAt         time.Time          `json:"taken_at"`          // 快照时间
}

// Position 按符号查找持仓，无持仓返回nil
func (p *PortfolioSnapshot) Position(symbol string) *broker.Position {
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return pos
		}
	}
	return nil
}

// DeployedValue 已投入资金总额（持仓市值之和）
func (p *PortfolioSnapshot) DeployedValue() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.MarketValue
	}
	return total
}

// GetPortfolioSnapshot 从券商获取账户快照
func (s *TradingAccountService) GetPortfolioSnapshot(ctx context.Context) (*PortfolioSnapshot, error) {
	account, err := s.broker.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	dailyPnl := account.Equity - account.LastEquity
	dailyPnlPercent := 0.0
	if account.LastEquity > 0 {
		dailyPnlPercent = dailyPnl / account.LastEquity * 100
	}

	return &PortfolioSnapshot{
		Equity:          account.Equity,
		Cash:            account.Cash,
		BuyingPower:     account.BuyingPower,
		DailyPnl:        dailyPnl,
		DailyPnlPercent: dailyPnlPercent,
		Positions:       positions,
		TakenAt:         time.Now(),
	}, nil
}

// SaveAccountHistory 保存账户历史记录
func (s *TradingAccountService) SaveAccountHistory(ctx context.Context, snapshot *PortfolioSnapshot, iteration int, tradingDay string) error {
	initialEquity := snapshot.Equity
	if first, err := s.AccountHistoryRepo.FindInitialEquity(ctx); err == nil {
		initialEquity = first.Equity
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("failed to get initial equity", zap.Error(err))
	}

	peakEquity := snapshot.Equity
	if peak, err := s.AccountHistoryRepo.FindPeakEquity(ctx); err == nil && peak.Equity > peakEquity {
		peakEquity = peak.Equity
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("failed to get peak equity", zap.Error(err))
	}

	returnPercent := 0.0
	if initialEquity > 0 {
		returnPercent = (snapshot.Equity - initialEquity) / initialEquity * 100
	}
	drawdownFromPeak := 0.0
	if peakEquity > 0 && peakEquity > snapshot.Equity {
		drawdownFromPeak = (peakEquity - snapshot.Equity) / peakEquity * 100
	}

	positionsJSON, err := json.Marshal(snapshot.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	history := models.AccountHistory{
		ID:               ulid.Make().String(),
		Equity:           snapshot.Equity,
		Cash:             snapshot.Cash,
		BuyingPower:      snapshot.BuyingPower,
		InitialEquity:    initialEquity,
		PeakEquity:       peakEquity,
		ReturnPercent:    returnPercent,
		DrawdownFromPeak: drawdownFromPeak,
		DailyPnlPercent:  snapshot.DailyPnlPercent,
		Positions:        positionsJSON,
		Iteration:        iteration,
		TradingDay:       tradingDay,
		RecordedAt:       time.Now(),
	}

	return s.AccountHistoryRepo.Create(ctx, &history)
}
