// Package dbtest 为测试提供内存 sqlite 数据库
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	dao "social_relay/internal/dao/mysql"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open 创建一个按测试名隔离的内存数据库并完成迁移
// 单连接串行执行语句，避免 sqlite 共享缓存的表锁错误
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), dao.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := dao.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
