package repo

import (
	"context"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewDailyStatRepo(db *gorm.DB) *DailyStatRepo {
	return &DailyStatRepo{
		Repository: orz.NewRepository[models.DailyStat, string](db),
	}
}

type DailyStatRepo struct {
	orz.Repository[models.DailyStat, string]
}

// FindByTradingDay 按交易日查找当日风控状态
func (r DailyStatRepo) FindByTradingDay(ctx context.Context, tradingDay string) (m models.DailyStat, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("trading_day = ?", tradingDay).
		First(&m).Error
	return m, err
}

// UpdateTripped 标记熔断器已触发（日内单向，不提供复位）
func (r DailyStatRepo) UpdateTripped(ctx context.Context, id string) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("breaker_tripped", true).Error
}

// UpdateTradeCount 更新当日提交次数
func (r DailyStatRepo) UpdateTradeCount(ctx context.Context, id string, count int) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("trade_count", count).Error
}
