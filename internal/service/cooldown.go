package service

import (
	"context"
	"sync"
	"time"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/models"
	"github.com/dushixiang/helmsman/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CooldownTracker 冷却追踪器
// 记录每个股票标的最近一次决策时间，回答本周期是否允许再次评估
// 加密资产不受冷却约束：按资产类别天然不适用，而非把时长配成0
type CooldownTracker struct {
	logger       *zap.Logger
	decisionRepo *repo.DecisionRepo
	cooldown     time.Duration

	mu           sync.RWMutex
	lastDecision map[string]time.Time // symbol -> 最近决策时间（仅股票）
}

// NewCooldownTracker 创建冷却追踪器
func NewCooldownTracker(db *gorm.DB, logger *zap.Logger) *CooldownTracker {
	return &CooldownTracker{
		logger:       logger,
		decisionRepo: repo.NewDecisionRepo(db),
		cooldown:     config.EquityCooldownMinutes * time.Minute,
		lastDecision: make(map[string]time.Time),
	}
}

// Rehydrate 从决策历史恢复冷却状态（重启后调用）
// 只回看一个冷却窗口：更早的决策不再影响资格
func (t *CooldownTracker) Rehydrate(ctx context.Context) error {
	times, err := t.decisionRepo.FindLastDecisionTimes(ctx, time.Now().Add(-t.cooldown))
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.lastDecision = times
	t.mu.Unlock()

	t.logger.Info("cooldown tracker rehydrated", zap.Int("symbols", len(times)))
	return nil
}

// IsEligible 标的本周期是否允许进入评估
// 股票：无决策记录，或距上次决策已满冷却时长；加密：始终允许
func (t *CooldownTracker) IsEligible(symbol string, class models.AssetClass, now time.Time) bool {
	if !class.CooldownApplies() {
		return true
	}

	t.mu.RLock()
	last, ok := t.lastDecision[symbol]
	t.mu.RUnlock()

	if !ok {
		return true
	}
	return now.Sub(last) >= t.cooldown
}

// RecordDecision 记录一次决策时间
// 加密资产为空操作，冷却表中永远不会出现加密标的
func (t *CooldownTracker) RecordDecision(symbol string, class models.AssetClass, now time.Time) {
	if !class.CooldownApplies() {
		return
	}

	t.mu.Lock()
	t.lastDecision[symbol] = now
	t.mu.Unlock()
}
