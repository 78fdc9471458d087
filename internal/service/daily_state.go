package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 交易日按交易场所时区（美东）计算
var venueLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// TradingDay 当前时刻所属的交易日（YYYY-MM-DD，场所时区）
func TradingDay(now time.Time) string {
	return now.In(venueLocation).Format("2006-01-02")
}

// CircuitBreaker 熔断器
// 状态机只有NORMAL与TRIPPED两个状态：当日亏损触及阈值后进入TRIPPED，
// 日内不可恢复，仅在交易日翻转时复位
type CircuitBreaker struct {
	logger        *zap.Logger
	dailyStatRepo *repo.DailyStatRepo
	limitPct      float64 // 当日亏损熔断阈值（%）

	mu               sync.RWMutex
	tradingDay       string
	statID           string
	startOfDayEquity float64
	tripped          bool
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(db *gorm.DB, limitPct float64, logger *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		logger:        logger,
		dailyStatRepo: repo.NewDailyStatRepo(db),
		limitPct:      limitPct,
	}
}

// Rollover 交易日翻转处理
// 当日首个周期建立开盘净值基准；日内重启时从持久化状态恢复触发标记
func (b *CircuitBreaker) Rollover(ctx context.Context, now time.Time, currentEquity float64) {
	day := TradingDay(now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tradingDay == day {
		return
	}

	stat, err := b.dailyStatRepo.FindByTradingDay(ctx, day)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			// 持久化读取失败：内存中按新的一天继续，重启前状态仍然有效
			b.logger.Error("failed to load daily stat, starting fresh in memory", zap.Error(err))
		}
		stat = models.DailyStat{
			ID:               ulid.Make().String(),
			TradingDay:       day,
			StartOfDayEquity: currentEquity,
		}
		if createErr := b.dailyStatRepo.Create(ctx, &stat); createErr != nil {
			b.logger.Error("failed to persist daily stat", zap.Error(createErr))
		}
		b.logger.Info("trading day rollover",
			zap.String("trading_day", day),
			zap.Float64("start_of_day_equity", currentEquity))
	} else {
		b.logger.Info("daily state restored",
			zap.String("trading_day", day),
			zap.Float64("start_of_day_equity", stat.StartOfDayEquity),
			zap.Bool("tripped", stat.BreakerTripped))
	}

	b.tradingDay = day
	b.statID = stat.ID
	b.startOfDayEquity = stat.StartOfDayEquity
	b.tripped = stat.BreakerTripped
}

// Update 用最新净值评估熔断条件
// 触发后保持TRIPPED直到交易日翻转；日内只会false→true，不会反向
func (b *CircuitBreaker) Update(ctx context.Context, currentEquity float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tripped || b.startOfDayEquity <= 0 {
		return
	}

	lossPct := (currentEquity - b.startOfDayEquity) / b.startOfDayEquity * 100
	if lossPct <= -b.limitPct {
		b.tripped = true
		b.logger.Error("circuit breaker tripped",
			zap.String("trading_day", b.tradingDay),
			zap.Float64("start_of_day_equity", b.startOfDayEquity),
			zap.Float64("current_equity", currentEquity),
			zap.Float64("loss_pct", lossPct),
			zap.Float64("limit_pct", b.limitPct))

		if b.statID != "" {
			if err := b.dailyStatRepo.UpdateTripped(ctx, b.statID); err != nil {
				b.logger.Error("failed to persist breaker trip", zap.Error(err))
			}
		}
	}
}

// Tripped 熔断器当前是否处于触发状态
func (b *CircuitBreaker) Tripped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tripped
}

// StartOfDayEquity 当日开盘净值基准
func (b *CircuitBreaker) StartOfDayEquity() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.startOfDayEquity
}

// DailyTradeCounter 当日交易计数器
// 每次非HOLD决策到达订单提交即计一次，无论券商结果如何；日内只增不减
type DailyTradeCounter struct {
	logger        *zap.Logger
	dailyStatRepo *repo.DailyStatRepo

	mu         sync.RWMutex
	tradingDay string
	statID     string
	count      int
}

// NewDailyTradeCounter 创建当日交易计数器
func NewDailyTradeCounter(db *gorm.DB, logger *zap.Logger) *DailyTradeCounter {
	return &DailyTradeCounter{
		logger:        logger,
		dailyStatRepo: repo.NewDailyStatRepo(db),
	}
}

// Rollover 交易日翻转处理，日内重启时恢复已计数值
// 熔断器先行翻转并建立当日记录，此处通常直接读到
func (c *DailyTradeCounter) Rollover(ctx context.Context, now time.Time) {
	day := TradingDay(now)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tradingDay == day {
		return
	}

	count := 0
	statID := ""
	if stat, err := c.dailyStatRepo.FindByTradingDay(ctx, day); err == nil {
		count = stat.TradeCount
		statID = stat.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.logger.Error("failed to load daily trade count", zap.Error(err))
	}

	c.tradingDay = day
	c.statID = statID
	c.count = count
}

// Increment 记录一次提交尝试
func (c *DailyTradeCounter) Increment(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	if c.statID != "" {
		if err := c.dailyStatRepo.UpdateTradeCount(ctx, c.statID, c.count); err != nil {
			c.logger.Error("failed to persist trade count", zap.Error(err))
		}
	}
}

// Count 当日已提交次数
func (c *DailyTradeCounter) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}
