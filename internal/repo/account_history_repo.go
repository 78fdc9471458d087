package repo

import (
	"context"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAccountHistoryRepo(db *gorm.DB) *AccountHistoryRepo {
	return &AccountHistoryRepo{
		Repository: orz.NewRepository[models.AccountHistory, string](db),
	}
}

type AccountHistoryRepo struct {
	orz.Repository[models.AccountHistory, string]
}

// FindInitialEquity 获取最早的净值记录
func (r AccountHistoryRepo) FindInitialEquity(ctx context.Context) (m models.AccountHistory, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Order("recorded_at ASC").
		First(&m).Error
	return m, err
}

// FindPeakEquity 获取净值峰值记录
func (r AccountHistoryRepo) FindPeakEquity(ctx context.Context) (m models.AccountHistory, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Order("equity DESC").
		First(&m).Error
	return m, err
}

// FindAllOrderByRecordedAt 获取全部账户历史（按时间排序）
func (r AccountHistoryRepo) FindAllOrderByRecordedAt(ctx context.Context) ([]models.AccountHistory, error) {
	var histories []models.AccountHistory
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("recorded_at ASC").
		Find(&histories).Error
	return histories, err
}
