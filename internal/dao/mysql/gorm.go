// Package dao 负责建立 MySQL 连接、迁移表结构
package dao

import (
	"fmt"
	"time"

	"social_relay/internal/config"
	"social_relay/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig 返回统一的 gorm 配置
// TranslateError 让唯一键冲突以 gorm.ErrDuplicatedKey 返回，时间统一为 UTC 毫秒精度
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

// Open 按配置连接 MySQL 并迁移表结构
func Open(conf config.MysqlConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		conf.User,
		conf.Password,
		conf.Host,
		conf.Port,
		conf.DatabaseName,
	)
	db, err := gorm.Open(mysql.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate 创建或更新投递层使用的表
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Message{}, &model.Relationship{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
