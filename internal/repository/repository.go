package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db        *gorm.DB
	isolation sql.IsolationLevel

	Location LocationRepository
}

// NewRepository 创建 Repository 聚合
// isolation 为 BeginTx 开启事务使用的隔离级别
func NewRepository(db *gorm.DB, isolation sql.IsolationLevel) *Repository {
	return &Repository{
		db:        db,
		isolation: isolation,
		Location:  NewLocationRepo(db),
	}
}

// ParseIsolation 将配置中的隔离级别名称转换为 sql.IsolationLevel，未知值按 serializable 处理
func ParseIsolation(name string) sql.IsolationLevel {
	switch name {
	case "read_committed":
		return sql.LevelReadCommitted
	case "repeatable_read":
		return sql.LevelRepeatableRead
	default:
		return sql.LevelSerializable
	}
}

// BeginTx 开启事务
// 未注入数据库连接时（单元测试中的内存实现）返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: r.isolation})
	if tx.Error != nil {
		return nil, wrapStoreErr("begin", tx.Error)
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{
		db:        tx,
		isolation: r.isolation,
		Location:  NewLocationRepo(tx),
	}
}

// Commit 提交事务，错误按存储错误分类
func Commit(tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	return wrapStoreErr("commit", tx.Commit().Error)
}

// Rollback 回滚事务
func Rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}
