// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"

	"gorm.io/gorm"

	"therapeutic-story-api/internal/domain/repository"
)

// TxManager 事务管理器
type TxManager struct {
	client *Client
}

// NewTxManager 创建事务管理器
func NewTxManager(client *Client) *TxManager {
	return &TxManager{client: client}
}

// WithTransaction 在事务中执行操作
// fn 返回错误时整体回滚；已在事务中时直接加入外层事务
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// 检查是否已在事务中
	if tx := getTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "postgres.WithTransaction")
	defer span.End()

	err := m.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 将事务放入上下文
		return fn(context.WithValue(ctx, repository.TxKey{}, tx))
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// getTxFromContext 从上下文获取事务
func getTxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(repository.TxKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// getDB 根据上下文获取连接：事务中返回事务句柄，否则返回绑定 ctx 的连接
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := getTxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
