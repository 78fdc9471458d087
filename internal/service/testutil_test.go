package service

import (
	"testing"

	"github.com/dushixiang/helmsman/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 内存sqlite数据库，跑完即弃
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		models.Decision{}, models.Trade{}, models.LossSale{},
		models.DailyStat{}, models.AccountHistory{},
	))
	return db
}
