package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lanlhvn/location-assignment/internal/model"
	pkgerrors "github.com/lanlhvn/location-assignment/pkg/errors"
)

// LocationRepository 地点数据访问接口
//
// 只负责持久化，不包含业务规则。物化路径 mpath 由实现内部维护。
type LocationRepository interface {
	// GetByID 按主键查询；记录不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id uint) (*model.Location, error)
	// Save ID 为 0 时插入，否则更新；父节点变化时同步改写整棵子树的路径
	Save(ctx context.Context, loc *model.Location) error
	// DeleteAndReturn 删除记录并返回删除前的状态
	DeleteAndReturn(ctx context.Context, loc *model.Location) (*model.Location, error)
	// CountDescendants 返回以 loc 为根的子树节点数，包含 loc 自身
	CountDescendants(ctx context.Context, loc *model.Location) (int64, error)
	// ListForest 返回全部根节点，Children 递归填充
	ListForest(ctx context.Context) ([]*model.Location, error)
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo 创建 LocationRepository 实例
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) GetByID(ctx context.Context, id uint) (*model.Location, error) {
	var loc model.Location
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("location.get", err)
	}
	return &loc, nil
}

func (r *locationRepo) Save(ctx context.Context, loc *model.Location) error {
	op := "location.update"
	if loc.ID == 0 {
		op = "location.insert"
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent, err := r.lockParent(tx, loc.ParentID)
		if err != nil {
			return err
		}

		if loc.ID == 0 {
			loc.MPath = ""
			if err := tx.Create(loc).Error; err != nil {
				return err
			}
			loc.MPath = parent.ChildPath(loc.ID)
			return tx.Model(loc).UpdateColumn("mpath", loc.MPath).Error
		}

		oldPath := loc.MPath
		newPath := parent.ChildPath(loc.ID)
		// 环路由服务层按业务规则拒绝；这里只拦截会让物化路径自包含的写入
		if oldPath != "" && parent != nil && strings.HasPrefix(parent.MPath, oldPath) {
			return constraintErr(op, fmt.Errorf("父节点 %d 位于节点 %d 的子树中", parent.ID, loc.ID))
		}

		loc.MPath = newPath
		if err := tx.Save(loc).Error; err != nil {
			loc.MPath = oldPath
			return err
		}

		if oldPath != "" && oldPath != newPath {
			err := tx.Model(&model.Location{}).
				Where("mpath LIKE ? AND id <> ?", oldPath+"%", loc.ID).
				UpdateColumn("mpath", gorm.Expr("? || SUBSTRING(mpath FROM ?)", newPath, len(oldPath)+1)).Error
			if err != nil {
				loc.MPath = oldPath
				return err
			}
		}
		return nil
	})
	if err != nil {
		var storeErr *pkgerrors.StoreError
		if errors.As(err, &storeErr) {
			return err
		}
		return wrapStoreErr(op, err)
	}
	return nil
}

// lockParent 在当前事务内读取父节点路径（FOR SHARE 防止并发删除）
func (r *locationRepo) lockParent(tx *gorm.DB, parentID *uint) (*model.Location, error) {
	if parentID == nil {
		return nil, nil
	}
	var parent model.Location
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id", "mpath").
		Where("id = ?", *parentID).
		First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, constraintErr("location.parent", fmt.Errorf("父节点 %d 不存在", *parentID))
	}
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

func (r *locationRepo) DeleteAndReturn(ctx context.Context, loc *model.Location) (*model.Location, error) {
	var deleted model.Location
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", loc.ID).
		Delete(&deleted)
	if result.Error != nil {
		return nil, wrapStoreErr("location.delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, wrapStoreErr("location.delete", fmt.Errorf("地点 %d 已不存在", loc.ID))
	}
	return &deleted, nil
}

func (r *locationRepo) CountDescendants(ctx context.Context, loc *model.Location) (int64, error) {
	var count int64
	var err error
	if loc.MPath != "" {
		err = r.db.WithContext(ctx).
			Model(&model.Location{}).
			Where("mpath LIKE ?", loc.MPath+"%").
			Count(&count).Error
	} else {
		// 路径缺失时退回按 parent_id 递归统计
		err = r.db.WithContext(ctx).Raw(`
			WITH RECURSIVE subtree AS (
				SELECT id FROM locations WHERE id = ?
				UNION ALL
				SELECT l.id FROM locations l JOIN subtree s ON l.parent_id = s.id
			)
			SELECT COUNT(*) FROM subtree`, loc.ID).Scan(&count).Error
	}
	if err != nil {
		return 0, wrapStoreErr("location.count_descendants", err)
	}
	return count, nil
}

func (r *locationRepo) ListForest(ctx context.Context) ([]*model.Location, error) {
	var rows []*model.Location
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreErr("location.list_forest", err)
	}
	return BuildForest(rows), nil
}
