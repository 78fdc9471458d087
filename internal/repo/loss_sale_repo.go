package repo

import (
	"context"
	"time"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewLossSaleRepo(db *gorm.DB) *LossSaleRepo {
	return &LossSaleRepo{
		Repository: orz.NewRepository[models.LossSale, string](db),
	}
}

type LossSaleRepo struct {
	orz.Repository[models.LossSale, string]
}

// FindSince 获取某时间点之后的全部亏损卖出记录（洗售状态恢复用）
// 查询按窗口裁剪，更早的记录留在表里不影响正确性
func (r LossSaleRepo) FindSince(ctx context.Context, since time.Time) ([]models.LossSale, error) {
	var records []models.LossSale
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("sale_date >= ?", since).
		Where("deleted_at IS NULL").
		Order("sale_date ASC").
		Find(&records).Error
	return records, err
}
