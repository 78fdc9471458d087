package handler

import (
	"net/http"

	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/dushixiang/helmsman/internal/service"
	"github.com/dushixiang/helmsman/internal/xe"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradingHandler 交易系统HTTP处理器，全部为只读查询
type TradingHandler struct {
	tradingLoop    *service.TradingLoop
	accountService *service.TradingAccountService
	decisionRepo   *repo.DecisionRepo
	tradeRepo      *repo.TradeRepo
	logger         *zap.Logger
}

// NewTradingHandler 创建交易处理器
func NewTradingHandler(
	db *gorm.DB,
	tradingLoop *service.TradingLoop,
	accountService *service.TradingAccountService,
	logger *zap.Logger,
) *TradingHandler {
	return &TradingHandler{
		tradingLoop:    tradingLoop,
		accountService: accountService,
		decisionRepo:   repo.NewDecisionRepo(db),
		tradeRepo:      repo.NewTradeRepo(db),
		logger:         logger,
	}
}

// GetStatus 获取交易循环状态快照
// GET /api/trading/status
func (h *TradingHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tradingLoop.GetStatus())
}

// GetPortfolio 获取当前账户与持仓
// GET /api/trading/portfolio
func (h *TradingHandler) GetPortfolio(c echo.Context) error {
	ctx := c.Request().Context()

	snapshot, err := h.accountService.GetPortfolioSnapshot(ctx)
	if err != nil {
		h.logger.Error("failed to get portfolio snapshot", zap.Error(err))
		return xe.ErrBrokerUnavailable
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetDecisions 获取决策历史
// GET /api/trading/decisions?limit=10
func (h *TradingHandler) GetDecisions(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := parseLimit(c.QueryParam("limit"), 10)
	if err != nil {
		return err
	}

	decisions, err := h.decisionRepo.FindRecentDecisions(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(decisions),
		"decisions": decisions,
	})
}

// GetTrades 获取交易历史
// GET /api/trading/trades?limit=20
func (h *TradingHandler) GetTrades(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := parseLimit(c.QueryParam("limit"), 20)
	if err != nil {
		return err
	}

	trades, err := h.tradeRepo.FindRecentTrades(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetEquityCurve 获取资金曲线数据
// GET /api/trading/equity-curve
func (h *TradingHandler) GetEquityCurve(c echo.Context) error {
	ctx := c.Request().Context()

	histories, err := h.accountService.FindAllOrderByRecordedAt(ctx)
	if err != nil {
		return err
	}

	data := make([]map[string]interface{}, 0, len(histories))
	for _, record := range histories {
		data = append(data, map[string]interface{}{
			"timestamp":          record.RecordedAt.Unix(),
			"time":               record.RecordedAt,
			"equity":             record.Equity,
			"cash":               record.Cash,
			"return_percent":     record.ReturnPercent,
			"drawdown_from_peak": record.DrawdownFromPeak,
			"daily_pnl_percent":  record.DailyPnlPercent,
			"iteration":          record.Iteration,
			"trading_day":        record.TradingDay,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(data),
		"data":  data,
	})
}

// parseLimit 解析limit查询参数，未传时使用默认值，非法值拒绝
func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit := cast.ToInt(raw)
	if limit <= 0 || limit > 200 {
		return 0, xe.ErrInvalidParams
	}
	return limit, nil
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	trading := g.Group("/trading")

	trading.GET("/status", h.GetStatus)
	trading.GET("/portfolio", h.GetPortfolio)
	trading.GET("/decisions", h.GetDecisions)
	trading.GET("/trades", h.GetTrades)
	trading.GET("/equity-curve", h.GetEquityCurve)
}
