package db

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fm-yodai/flash-vote/internal/models"
)

// Connect 建立到 Postgres 的连接，带简单重试以等待容器就绪。
// 开启 TranslateError 以便唯一索引冲突映射为 gorm.ErrDuplicatedKey。
func Connect(dsn string) (*gorm.DB, error) {
	var gdb *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return gdb, nil
			}
			err = err2
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	return nil, err
}

// Migrate 自动迁移全部六张表，复合唯一索引与级联外键由模型标签声明。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Room{},
		&models.Question{},
		&models.Option{},
		&models.Participant{},
		&models.Response{},
		&models.AuditLogEntry{},
	)
}
