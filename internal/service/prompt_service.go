package service

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/valyala/fasttemplate"
	"gorm.io/gorm"
)

//go:embed templates/system_instructions.txt
var systemInstructionsTemplate string

// PromptService AI提示词生成服务
type PromptService struct {
	config       *config.Config
	decisionRepo *repo.DecisionRepo
	tradeRepo    *repo.TradeRepo
}

// NewPromptService 创建提示词服务
func NewPromptService(db *gorm.DB, conf *config.Config) *PromptService {
	return &PromptService{
		config:       conf,
		decisionRepo: repo.NewDecisionRepo(db),
		tradeRepo:    repo.NewTradeRepo(db),
	}
}

// PromptData 单周期的提示词数据
type PromptData struct {
	Iteration     int
	Now           time.Time
	Portfolio     *PortfolioSnapshot
	SymbolData    map[string]*SymbolData
	Indicators    map[string]*IndicatorSet
	TradesToday   int
	MaxTradesDay  int
	BreakerStatus bool
}

// GeneratePrompt 生成完整的用户提示词
func (s *PromptService) GeneratePrompt(ctx context.Context, data *PromptData) string {
	if data == nil {
		return ""
	}

	var sb strings.Builder

	s.writeCycleContext(&sb, data)
	s.writeAccountInfo(&sb, data)
	s.writePositionInfo(&sb, data.Portfolio)
	s.writeMarketData(&sb, data)
	s.writeRecentDecisions(ctx, &sb)
	s.writeRecentTrades(ctx, &sb)

	return sb.String()
}

// writeCycleContext 写入周期背景
func (s *PromptService) writeCycleContext(sb *strings.Builder, data *PromptData) {
	sb.WriteString("## Cycle context\n\n")
	sb.WriteString(fmt.Sprintf("- Current time: %s (New York)\n", data.Now.In(venueLocation).Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("- Cycle number: %d\n", data.Iteration))
	sb.WriteString(fmt.Sprintf("- Order submissions used today: %d/%d\n", data.TradesToday, data.MaxTradesDay))
	if data.BreakerStatus {
		sb.WriteString("- Circuit breaker: TRIPPED, all trades will be vetoed until the next trading day\n")
	}
	sb.WriteString("\n")
}

// writeAccountInfo 写入账户信息
func (s *PromptService) writeAccountInfo(sb *strings.Builder, data *PromptData) {
	p := data.Portfolio
	sb.WriteString("## Account\n\n")
	sb.WriteString(fmt.Sprintf("- Equity: $%.2f\n", p.Equity))
	sb.WriteString(fmt.Sprintf("- Cash: $%.2f\n", p.Cash))
	sb.WriteString(fmt.Sprintf("- Buying power: $%.2f\n", p.BuyingPower))
	sb.WriteString(fmt.Sprintf("- Daily P&L: $%.2f (%.2f%%)\n", p.DailyPnl, p.DailyPnlPercent))
	sb.WriteString(fmt.Sprintf("- Deployed capital: $%.2f\n\n", p.DeployedValue()))
}

// writePositionInfo 写入持仓信息
func (s *PromptService) writePositionInfo(sb *strings.Builder, portfolio *PortfolioSnapshot) {
	sb.WriteString("## Positions\n\n")

	if len(portfolio.Positions) == 0 {
		sb.WriteString("No open positions.\n\n")
		return
	}

	for _, pos := range portfolio.Positions {
		sb.WriteString(fmt.Sprintf("- %s (%s): %.4f @ $%.2f avg entry, current $%.2f, value $%.2f, unrealized $%.2f (%.2f%%)\n",
			pos.Symbol, pos.Class, pos.Quantity, pos.AvgEntryPrice,
			pos.CurrentPrice, pos.MarketValue, pos.UnrealizedPnl, pos.UnrealizedPnlPct))
	}
	sb.WriteString("\n")
}

// writeMarketData 写入各标的行情与技术指标
func (s *PromptService) writeMarketData(sb *strings.Builder, data *PromptData) {
	sb.WriteString("## Market data\n\n")

	if len(data.SymbolData) == 0 {
		sb.WriteString("No market data available this cycle.\n\n")
		return
	}

	symbols := make([]string, 0, len(data.SymbolData))
	for symbol := range data.SymbolData {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		sd := data.SymbolData[symbol]
		if sd == nil {
			continue
		}

		sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", symbol, sd.Instrument.Class))
		sb.WriteString(fmt.Sprintf("price: $%.2f\n", sd.Quote.Price))
		sb.WriteString(data.Indicators[symbol].Lines())

		if len(sd.News) > 0 {
			sb.WriteString("recent news:\n")
			for _, article := range sd.News {
				sb.WriteString(fmt.Sprintf("- [%s] %s\n", article.Source, article.Headline))
			}
		}
		sb.WriteString("\n")
	}
}

// writeRecentDecisions 写入近期AI决策（含被否决的，供模型学习风控边界）
func (s *PromptService) writeRecentDecisions(ctx context.Context, sb *strings.Builder) {
	sb.WriteString("## Recent decisions (last 10)\n\n")

	decisions, err := s.decisionRepo.FindRecentDecisions(ctx, 10)
	if err != nil || len(decisions) == 0 {
		sb.WriteString("No prior decisions.\n\n")
		return
	}

	for _, d := range decisions {
		sb.WriteString(fmt.Sprintf("- [%s] cycle %d: %s %s", d.ExecutedAt.Format("01-02 15:04"), d.Iteration, d.Action, d.Symbol))
		if d.Quantity > 0 {
			sb.WriteString(fmt.Sprintf(" x%.4f", d.Quantity))
		}
		if d.Vetoed {
			sb.WriteString(fmt.Sprintf(" — %s", d.RiskNotes))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeRecentTrades 写入近期成交记录
func (s *PromptService) writeRecentTrades(ctx context.Context, sb *strings.Builder) {
	sb.WriteString("## Recent trades (last 10)\n\n")

	trades, err := s.tradeRepo.FindRecentTrades(ctx, 10)
	if err != nil || len(trades) == 0 {
		sb.WriteString("No prior trades.\n\n")
		return
	}

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("- [%s] %s %s x%.4f @ $%.2f, status %s",
			t.ExecutedAt.Format("01-02 15:04"), t.Side, t.Symbol, t.Quantity, t.FillPrice, t.Status))
		if t.Side == models.ActionSell && t.RealizedPnl != 0 {
			sb.WriteString(fmt.Sprintf(", realized $%.2f", t.RealizedPnl))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// GetSystemInstructions 获取系统指令，风控阈值注入模板
func (s *PromptService) GetSystemInstructions() string {
	rc := s.config.Risk

	formatFloat := func(val float64) string {
		str := fmt.Sprintf("%.2f", val)
		str = strings.TrimRight(str, "0")
		str = strings.TrimRight(str, ".")
		if str == "" {
			return "0"
		}
		return str
	}

	replacements := map[string]interface{}{
		"max_position_pct":           formatFloat(rc.MaxPositionPct),
		"low_price_threshold":        formatFloat(rc.LowPriceThreshold),
		"low_price_max_position_pct": formatFloat(rc.LowPriceMaxPositionPct),
		"max_portfolio_risk_pct":     formatFloat(rc.MaxPortfolioRiskPct),
		"min_cash_reserve_pct":       formatFloat(rc.MinCashReservePct),
		"max_trades_per_day":         fmt.Sprintf("%d", rc.MaxTradesPerDay),
		"daily_loss_limit_pct":       formatFloat(rc.DailyLossLimitPct),
	}

	tmpl := fasttemplate.New(systemInstructionsTemplate, "{{", "}}")
	return tmpl.ExecuteString(replacements)
}
