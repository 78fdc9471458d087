package service

import (
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"go.uber.org/zap"
)

// 否决原因，沿用固定措辞写入风险备注
const (
	ReasonCircuitBreaker = "circuit breaker tripped"
	ReasonDailyTradeCap  = "daily trade cap reached"
	ReasonPositionSize   = "position size exceeds limit"
	ReasonPortfolioRisk  = "portfolio risk exceeds limit"
	ReasonCashReserve    = "cash reserve breach"
	ReasonWashSale       = "wash sale window"
)

// riskContext 单条决策的评估输入，规则之间只读共享
type riskContext struct {
	decision  models.Decision
	portfolio *PortfolioSnapshot
	price     float64
	now       time.Time
}

// riskRule 一条风控规则：命中返回否决原因
type riskRule struct {
	name  string
	check func(rc *riskContext) (reason string, vetoed bool)
}

// RiskService 风控闸门
// 按固定顺序执行规则链，任一规则命中立即短路，后续规则不再评估
// 只做决策改写，不修改任何追踪器状态
type RiskService struct {
	logger  *zap.Logger
	conf    config.RiskConf
	breaker *CircuitBreaker
	counter *DailyTradeCounter
	washes  *WashSaleTracker

	rules []riskRule
}

// NewRiskService 创建风控闸门
func NewRiskService(conf config.RiskConf, breaker *CircuitBreaker, counter *DailyTradeCounter, washes *WashSaleTracker, logger *zap.Logger) *RiskService {
	s := &RiskService{
		logger:  logger,
		conf:    conf,
		breaker: breaker,
		counter: counter,
		washes:  washes,
	}
	// 规则顺序固定：熔断 → 日限 → 仓位 → 总风险 → 现金储备 → 洗售
	s.rules = []riskRule{
		{name: "circuit_breaker", check: s.checkCircuitBreaker},
		{name: "daily_trade_cap", check: s.checkDailyTradeCap},
		{name: "position_size", check: s.checkPositionSize},
		{name: "portfolio_risk", check: s.checkPortfolioRisk},
		{name: "cash_reserve", check: s.checkCashReserve},
		{name: "wash_sale", check: s.checkWashSale},
	}
	return s
}

// Evaluate 对单条决策执行规则链
// HOLD决策原样放行；被否决的决策改写为HOLD并追加原因，原理由保留
func (s *RiskService) Evaluate(decision models.Decision, portfolio *PortfolioSnapshot, price float64, now time.Time) models.Decision {
	if decision.Action == models.ActionHold {
		return decision
	}

	rc := &riskContext{
		decision:  decision,
		portfolio: portfolio,
		price:     price,
		now:       now,
	}
	for _, rule := range s.rules {
		reason, vetoed := rule.check(rc)
		if vetoed {
			s.logger.Warn("decision vetoed",
				zap.String("symbol", decision.Symbol),
				zap.String("action", decision.Action.String()),
				zap.String("rule", rule.name),
				zap.String("reason", reason))
			return decision.WithVeto(reason)
		}
	}
	return decision
}

// checkCircuitBreaker 熔断器触发后阻止所有买卖
func (s *RiskService) checkCircuitBreaker(rc *riskContext) (string, bool) {
	if s.breaker.Tripped() {
		return ReasonCircuitBreaker, true
	}
	return "", false
}

// checkDailyTradeCap 当日提交次数达到上限后阻止所有买卖
func (s *RiskService) checkDailyTradeCap(rc *riskContext) (string, bool) {
	if s.counter.Count() >= s.conf.MaxTradesPerDay {
		return ReasonDailyTradeCap, true
	}
	return "", false
}

// checkPositionSize 单一持仓上限，仅约束买入
// 持仓价值按现有持仓市值加本次拟买入金额计算；低价股适用更严格的档位
func (s *RiskService) checkPositionSize(rc *riskContext) (string, bool) {
	if rc.decision.Action != models.ActionBuy {
		return "", false
	}

	limitPct := s.conf.MaxPositionPct
	if rc.price < s.conf.LowPriceThreshold {
		limitPct = s.conf.LowPriceMaxPositionPct
	}

	existing := 0.0
	if pos := rc.portfolio.Position(rc.decision.Symbol); pos != nil {
		existing = pos.MarketValue
	}
	intended := existing + rc.decision.Quantity*rc.price
	limit := rc.portfolio.Equity * limitPct / 100

	// 恰好等于上限放行，严格超出才否决
	if intended > limit {
		s.logger.Debug("position size limit exceeded",
			zap.String("symbol", rc.decision.Symbol),
			zap.Float64("intended_value", intended),
			zap.Float64("limit_value", limit),
			zap.Float64("limit_pct", limitPct))
		return ReasonPositionSize, true
	}
	return "", false
}

// checkPortfolioRisk 总投入资金上限，仅约束买入
func (s *RiskService) checkPortfolioRisk(rc *riskContext) (string, bool) {
	if rc.decision.Action != models.ActionBuy {
		return "", false
	}

	deployed := rc.portfolio.DeployedValue() + rc.decision.Quantity*rc.price
	limit := rc.portfolio.Equity * s.conf.MaxPortfolioRiskPct / 100
	if deployed > limit {
		s.logger.Debug("portfolio risk limit exceeded",
			zap.String("symbol", rc.decision.Symbol),
			zap.Float64("deployed_value", deployed),
			zap.Float64("limit_value", limit))
		return ReasonPortfolioRisk, true
	}
	return "", false
}

// checkCashReserve 最低现金储备，仅约束买入
// 买入后剩余现金不得低于净值的储备比例
func (s *RiskService) checkCashReserve(rc *riskContext) (string, bool) {
	if rc.decision.Action != models.ActionBuy {
		return "", false
	}

	remaining := rc.portfolio.Cash - rc.decision.Quantity*rc.price
	required := rc.portfolio.Equity * s.conf.MinCashReservePct / 100
	if remaining < required {
		s.logger.Debug("cash reserve would be breached",
			zap.String("symbol", rc.decision.Symbol),
			zap.Float64("remaining_cash", remaining),
			zap.Float64("required_reserve", required))
		return ReasonCashReserve, true
	}
	return "", false
}

// checkWashSale 洗售窗口，仅约束股票买入
// 追踪器只会记录股票的亏损卖出，加密标的查不到记录，天然放行
func (s *RiskService) checkWashSale(rc *riskContext) (string, bool) {
	if rc.decision.Action != models.ActionBuy {
		return "", false
	}
	if !rc.decision.AssetClass.WashSaleApplies() {
		return "", false
	}
	if s.washes.HasRecentLoss(rc.decision.Symbol, rc.now) {
		return ReasonWashSale, true
	}
	return "", false
}
