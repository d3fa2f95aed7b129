// Package postgrestest 提供基于内存 SQLite 的仓储测试客户端
package postgrestest

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"therapeutic-story-api/internal/infrastructure/persistence/postgres"
)

// NewClient 打开迁移完成的内存库，测试结束自动关闭
func NewClient(t testing.TB) *postgres.Client {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// 内存库按连接隔离，固定单连接
	sqlDB.SetMaxOpenConns(1)

	client := postgres.NewClientFromDB(db)
	if err := client.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
