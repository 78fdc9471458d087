package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewDecisionRepo(db *gorm.DB) *DecisionRepo {
	return &DecisionRepo{
		Repository: orz.NewRepository[models.Decision, string](db),
	}
}

type DecisionRepo struct {
	orz.Repository[models.Decision, string]
}

// FindRecentDecisions 获取最近的决策记录
func (r DecisionRepo) FindRecentDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	var decisions []models.Decision
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("executed_at DESC").
		Limit(limit).
		Find(&decisions).Error
	return decisions, err
}

// FindLatestIteration 获取最新的迭代编号
func (r DecisionRepo) FindLatestIteration(ctx context.Context) (int, error) {
	var decision models.Decision
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("iteration DESC").
		First(&decision).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decision.Iteration, nil
}

// FindLastDecisionTimes 获取since之后每个股票标的最近一次决策时间（冷却状态恢复用）
// 加密标的天然不受冷却约束，查询时直接排除
// 扫描完整行后在内存中取最大值：聚合出的时间列在sqlite驱动上无法扫回time.Time
func (r DecisionRepo) FindLastDecisionTimes(ctx context.Context, since time.Time) (map[string]time.Time, error) {
	var decisions []models.Decision
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("asset_class = ?", models.AssetClassEquity).
		Where("executed_at >= ?", since).
		Where("deleted_at IS NULL").
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]time.Time)
	for _, d := range decisions {
		if last, ok := result[d.Symbol]; !ok || d.ExecutedAt.After(last) {
			result[d.Symbol] = d.ExecutedAt
		}
	}
	return result, nil
}
