package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/dushixiang/helmsman/internal/telegram"
	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CycleStatus 周期状态快照，只读
type CycleStatus struct {
	IsRunning       bool      `json:"is_running"`
	Iteration       int       `json:"iteration"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastCycleError  string    `json:"last_cycle_error"`
	TradingDay      string    `json:"trading_day"`
	BreakerTripped  bool      `json:"breaker_tripped"`
	TradesSubmitted int       `json:"trades_submitted"`
	StartTime       time.Time `json:"start_time"`
}

// TradingLoop 交易循环调度器
// 周期为唯一写入者：每个周期完整执行决策、风控与执行，周期之间不重叠
type TradingLoop struct {
	config           *config.Config
	marketService    *MarketService
	accountService   *TradingAccountService
	indicatorService *IndicatorService
	riskService      *RiskService
	promptService    *PromptService
	agentService     *AgentService
	executionService *ExecutionService
	breaker          *CircuitBreaker
	counter          *DailyTradeCounter
	cooldown         *CooldownTracker
	washes           *WashSaleTracker
	decisionRepo     *repo.DecisionRepo
	tg               *telegram.Telegram
	logger           *zap.Logger

	stopChan chan struct{}
	cron     *cron.Cron

	// cycleMu 保证周期互不重叠：上个周期未结束时本次触发直接跳过
	cycleMu sync.Mutex

	// statusMu 保护状态快照，供只读查询
	statusMu       sync.RWMutex
	isRunning      bool
	startTime      time.Time
	iteration      int
	lastCycleAt    time.Time
	lastCycleError string
}

// NewTradingLoop 创建交易循环
func NewTradingLoop(
	conf *config.Config,
	db *gorm.DB,
	marketService *MarketService,
	accountService *TradingAccountService,
	indicatorService *IndicatorService,
	riskService *RiskService,
	promptService *PromptService,
	agentService *AgentService,
	executionService *ExecutionService,
	breaker *CircuitBreaker,
	counter *DailyTradeCounter,
	cooldown *CooldownTracker,
	washes *WashSaleTracker,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *TradingLoop {
	return &TradingLoop{
		config:           conf,
		marketService:    marketService,
		accountService:   accountService,
		indicatorService: indicatorService,
		riskService:      riskService,
		promptService:    promptService,
		agentService:     agentService,
		executionService: executionService,
		breaker:          breaker,
		counter:          counter,
		cooldown:         cooldown,
		washes:           washes,
		decisionRepo:     repo.NewDecisionRepo(db),
		tg:               tg,
		logger:           logger,
		startTime:        time.Now(),
		stopChan:         make(chan struct{}),
	}
}

// Start 启动交易循环
func (t *TradingLoop) Start(ctx context.Context) error {
	t.statusMu.Lock()
	if t.isRunning {
		t.statusMu.Unlock()
		return fmt.Errorf("trading loop is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.statusMu.Unlock()

	// 从决策历史恢复迭代编号，重启后不从0开始
	if lastIteration, err := t.decisionRepo.FindLatestIteration(ctx); err != nil {
		t.logger.Warn("failed to load latest iteration, fallback to 0", zap.Error(err))
	} else {
		t.setIteration(lastIteration)
		t.logger.Info("resume iteration counter from history", zap.Int("iteration", lastIteration))
	}

	// 重启后恢复冷却与洗售状态
	if err := t.cooldown.Rehydrate(ctx); err != nil {
		t.logger.Warn("failed to rehydrate cooldown tracker", zap.Error(err))
	}
	if err := t.washes.Rehydrate(ctx, time.Now()); err != nil {
		t.logger.Warn("failed to rehydrate wash sale tracker", zap.Error(err))
	}

	cronExpr := fmt.Sprintf("*/%d * * * *", t.config.Trading.IntervalMinutes)

	t.logger.Info("trading loop started",
		zap.Strings("watchlist", t.config.Trading.Watchlist),
		zap.Strings("crypto_watchlist", t.config.Trading.CryptoWatchlist),
		zap.Int("interval_minutes", t.config.Trading.IntervalMinutes),
		zap.String("cron_expression", cronExpr))

	t.cron = cron.New()
	_, err := t.cron.AddFunc(cronExpr, func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("cycle execution failed", zap.Error(err))
		}
	})
	if err != nil {
		t.setRunning(false)
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	// 立即执行第一次
	go func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("first cycle execution failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
		t.logger.Info("trading loop stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("trading loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止交易循环
func (t *TradingLoop) Stop() {
	t.statusMu.Lock()
	if !t.isRunning {
		t.statusMu.Unlock()
		return
	}
	t.isRunning = false
	t.statusMu.Unlock()

	t.logger.Info("stopping trading loop...")

	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("cron scheduler stopped")
	}

	close(t.stopChan)
	t.logger.Info("trading loop stopped")
}

// ExecuteCycle 执行一个完整的交易周期（7步流程）
// 上个周期仍在执行时直接跳过，不排队
func (t *TradingLoop) ExecuteCycle(ctx context.Context) error {
	if !t.cycleMu.TryLock() {
		t.logger.Warn("previous cycle still running, skipping this tick")
		return nil
	}
	defer t.cycleMu.Unlock()

	iteration := t.nextIteration()
	cycleStart := time.Now()
	now := cycleStart

	t.logger.Info("========== TRADING CYCLE START ==========",
		zap.Int("iteration", iteration),
		zap.Time("start_time", cycleStart))

	err := t.runCycle(ctx, iteration, now)

	t.statusMu.Lock()
	t.lastCycleAt = cycleStart
	if err != nil {
		t.lastCycleError = err.Error()
	} else {
		t.lastCycleError = ""
	}
	t.statusMu.Unlock()

	t.logger.Info("========== TRADING CYCLE END ==========",
		zap.Int("iteration", iteration),
		zap.Duration("duration", time.Since(cycleStart)))
	return err
}

func (t *TradingLoop) runCycle(ctx context.Context, iteration int, now time.Time) error {
	// ========== Step 1: 账户快照 ==========
	t.logger.Info("[STEP 1/7] Taking portfolio snapshot...")
	portfolio, err := t.accountService.GetPortfolioSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("step 1 failed - portfolio snapshot: %w", err)
	}
	t.logger.Info("[STEP 1/7] Portfolio snapshot taken",
		zap.Float64("equity", portfolio.Equity),
		zap.Float64("cash", portfolio.Cash),
		zap.Int("positions", len(portfolio.Positions)))

	// ========== Step 2: 交易日翻转与熔断评估 ==========
	t.logger.Info("[STEP 2/7] Updating daily risk state...")
	t.breaker.Rollover(ctx, now, portfolio.Equity)
	t.counter.Rollover(ctx, now)
	wasTripped := t.breaker.Tripped()
	t.breaker.Update(ctx, portfolio.Equity)
	if !wasTripped && t.breaker.Tripped() {
		t.notify(telegram.FormatBreakerMessage(t.breaker.StartOfDayEquity(), portfolio.Equity))
	}
	tradingDay := TradingDay(now)

	if err := t.accountService.SaveAccountHistory(ctx, portfolio, iteration, tradingDay); err != nil {
		t.logger.Error("failed to save account history", zap.Error(err))
	}
	t.logger.Info("[STEP 2/7] Daily risk state updated",
		zap.String("trading_day", tradingDay),
		zap.Bool("breaker_tripped", t.breaker.Tripped()),
		zap.Int("trades_today", t.counter.Count()))

	// ========== Step 3: 候选集构建与冷却过滤 ==========
	t.logger.Info("[STEP 3/7] Building candidate set...")
	var movers []broker.Instrument
	if t.config.Trading.DiscoverMovers {
		movers = t.marketService.DiscoverMovers(ctx, t.config.Trading.MaxMovers)
	}
	candidates := t.executionService.BuildCandidates(
		t.config.Trading.Watchlist, t.config.Trading.CryptoWatchlist, movers)
	candidates = t.filterMarketHours(candidates, now)
	eligible := t.executionService.SelectEligible(candidates, now)
	if len(eligible) == 0 {
		t.logger.Info("[STEP 3/7] No eligible symbols this cycle")
		return nil
	}
	t.logger.Info("[STEP 3/7] Candidate set built",
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(eligible)))

	// ========== Step 4: 行情与指标 ==========
	t.logger.Info("[STEP 4/7] Collecting market data...")
	symbolData := make(map[string]*SymbolData)
	indicators := make(map[string]*IndicatorSet)
	candidateClasses := make(map[string]models.AssetClass)
	for _, inst := range eligible {
		sd, err := t.marketService.FetchSymbolData(ctx, inst)
		if err != nil {
			t.logger.Warn("skipping symbol without market data",
				zap.String("symbol", inst.Symbol),
				zap.Error(err))
			continue
		}
		symbolData[inst.Symbol] = sd
		indicators[inst.Symbol] = t.indicatorService.Compute(sd.Bars, sd.Quote.Price)
		candidateClasses[inst.Symbol] = models.AssetClass(inst.Class)
	}
	if len(symbolData) == 0 {
		return fmt.Errorf("step 4 failed - no market data available")
	}
	t.logger.Info("[STEP 4/7] Market data collected", zap.Int("symbols", len(symbolData)))

	// ========== Step 5: 生成提示词 ==========
	t.logger.Info("[STEP 5/7] Generating LLM prompt...")
	promptData := &PromptData{
		Iteration:     iteration,
		Now:           now,
		Portfolio:     portfolio,
		SymbolData:    symbolData,
		Indicators:    indicators,
		TradesToday:   t.counter.Count(),
		MaxTradesDay:  t.config.Risk.MaxTradesPerDay,
		BreakerStatus: t.breaker.Tripped(),
	}
	prompt := t.promptService.GeneratePrompt(ctx, promptData)
	systemInstructions := t.promptService.GetSystemInstructions()
	t.logger.Info("[STEP 5/7] LLM prompt generated", zap.Int("prompt_length", len(prompt)))

	// ========== Step 6: LLM决策 ==========
	t.logger.Info("[STEP 6/7] Requesting LLM decisions...")
	result, err := t.agentService.RequestDecisions(ctx, systemInstructions, prompt, candidateClasses)
	if err != nil {
		return fmt.Errorf("step 6 failed - LLM decision: %w", err)
	}
	t.logger.Info("[STEP 6/7] LLM decisions received",
		zap.Int("decisions", len(result.Decisions)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.String("market_assessment", result.MarketAssessment))

	// ========== Step 7: 风控与执行 ==========
	t.logger.Info("[STEP 7/7] Applying risk gate and executing...")
	executed := 0
	for _, decision := range result.Decisions {
		t.processDecision(ctx, decision, portfolio, symbolData, iteration, now, &executed)
	}
	t.logger.Info("[STEP 7/7] Execution completed",
		zap.Int("decisions", len(result.Decisions)),
		zap.Int("executed", executed),
		zap.Int("trades_today", t.counter.Count()))

	return nil
}

// processDecision 处理单条决策：风控改写、落库、冷却登记、提交
// 单条失败只影响该标的
func (t *TradingLoop) processDecision(ctx context.Context, decision models.Decision, portfolio *PortfolioSnapshot, symbolData map[string]*SymbolData, iteration int, now time.Time, executed *int) {
	sd := symbolData[decision.Symbol]
	if sd == nil {
		return
	}

	final := t.riskService.Evaluate(decision, portfolio, sd.Quote.Price, now)

	final.ID = ulid.Make().String()
	final.Iteration = iteration
	final.ExecutedAt = now
	if err := t.decisionRepo.Create(ctx, &final); err != nil {
		t.logger.Error("failed to save decision",
			zap.String("symbol", final.Symbol),
			zap.Error(err))
	}

	// 决策一经记录即进入冷却，HOLD与否决同样占用窗口
	t.cooldown.RecordDecision(final.Symbol, final.AssetClass, now)

	if final.Vetoed {
		t.notify(telegram.FormatVetoMessage(decision.Symbol, string(decision.Action), final.RiskNotes))
		return
	}
	if final.Action == models.ActionHold {
		return
	}

	trade, err := t.executionService.Submit(ctx, final, portfolio, now)
	if err != nil {
		t.logger.Error("order submission failed",
			zap.String("symbol", final.Symbol),
			zap.Error(err))
		return
	}
	*executed++
	t.notify(telegram.FormatTradeMessage(trade.Symbol, string(trade.Side), trade.Quantity, trade.FillPrice, string(trade.Status)))
}

// filterMarketHours 股票仅在配置的交易时段内保留，加密全天候
func (t *TradingLoop) filterMarketHours(candidates []broker.Instrument, now time.Time) []broker.Instrument {
	local := now.In(venueLocation)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return t.cryptoOnly(candidates)
	}

	clock := local.Format("15:04")
	if clock < t.config.Trading.MarketOpen || clock > t.config.Trading.MarketClose {
		return t.cryptoOnly(candidates)
	}
	return candidates
}

func (t *TradingLoop) cryptoOnly(candidates []broker.Instrument) []broker.Instrument {
	filtered := make([]broker.Instrument, 0, len(candidates))
	for _, inst := range candidates {
		if inst.Class == broker.AssetClassCrypto {
			filtered = append(filtered, inst)
		}
	}
	return filtered
}

// notify 推送通知，未配置或失败都不影响交易流程
func (t *TradingLoop) notify(msg string) {
	if t.tg == nil || !t.config.Telegram.Enabled {
		return
	}
	if err := t.tg.Notify(t.config.Telegram.ChatID, msg); err != nil {
		t.logger.Warn("failed to send telegram notification", zap.Error(err))
	}
}

func (t *TradingLoop) setIteration(n int) {
	t.statusMu.Lock()
	t.iteration = n
	t.statusMu.Unlock()
}

func (t *TradingLoop) nextIteration() int {
	t.statusMu.Lock()
	t.iteration++
	n := t.iteration
	t.statusMu.Unlock()
	return n
}

// IsRunning 检查是否正在运行
func (t *TradingLoop) IsRunning() bool {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return t.isRunning
}

func (t *TradingLoop) setRunning(running bool) {
	t.statusMu.Lock()
	t.isRunning = running
	t.statusMu.Unlock()
}

// GetStatus 获取状态快照
func (t *TradingLoop) GetStatus() CycleStatus {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return CycleStatus{
		IsRunning:       t.isRunning,
		Iteration:       t.iteration,
		LastCycleAt:     t.lastCycleAt,
		LastCycleError:  t.lastCycleError,
		TradingDay:      TradingDay(time.Now()),
		BreakerTripped:  t.breaker.Tripped(),
		TradesSubmitted: t.counter.Count(),
		StartTime:       t.startTime,
	}
}
