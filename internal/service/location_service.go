package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lanlhvn/location-assignment/internal/dto"
	"github.com/lanlhvn/location-assignment/internal/model"
	"github.com/lanlhvn/location-assignment/internal/repository"
	pkgerrors "github.com/lanlhvn/location-assignment/pkg/errors"
	"github.com/lanlhvn/location-assignment/pkg/redis"
)

// ── 地点模块业务错误 ──

var (
	ErrLocationNotFound = errors.New("地点不存在")
	ErrParentNotFound   = errors.New("上级地点不存在")
	ErrInvalidParent    = errors.New("上级地点不能是自身或其下级地点")
	ErrInvalidLocation  = errors.New("地点数据无效")
	ErrHasChildren      = errors.New("地点下存在子地点，无法删除")
	// ErrStore 存储层故障，原样向上传递，不做重试
	ErrStore = pkgerrors.ErrStore
)

// LocationError 携带操作名与地点 ID 的业务错误，errors.Is 可匹配内部哨兵错误
type LocationError struct {
	Op  string
	ID  uint
	Err error
}

func (e *LocationError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("location.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("location.%s id=%d: %v", e.Op, e.ID, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }

// 地点树缓存按版本号分键：每次成功写入后递增版本，读取只访问当前版本的键
const forestVersionKey = "location:forest:ver"

func forestKey(ver int64) string {
	return fmt.Sprintf("location:forest:%d", ver)
}

// ForestCache 地点树缓存，由 pkg/redis.Client 实现
type ForestCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetInt64(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// LocationService 地点树业务接口
//
// 所有写操作在数据到达存储之前完成父节点存在性、环路与子节点校验。
type LocationService interface {
	Create(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error)
	// FindAll 返回完整森林；存储失败时返回错误，不会返回部分结果
	FindAll(ctx context.Context) ([]*dto.LocationResponse, error)
	// FindOne 查询单个地点；不存在时返回 (nil, nil)
	FindOne(ctx context.Context, id uint) (*dto.LocationResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error)
	// Remove 删除无子节点的地点，返回删除前的状态
	Remove(ctx context.Context, id uint) (*dto.LocationResponse, error)
}

type locationService struct {
	repo     *repository.Repository
	cache    ForestCache
	cacheTTL time.Duration
	logger   *zap.Logger

	// failedBumps 记录写入后版本递增失败的次数；非零时读取前须先补做递增
	failedBumps atomic.Int64
}

// NewLocationService 创建 LocationService 实例
// cache 为 nil 时不使用缓存
func NewLocationService(repo *repository.Repository, cache ForestCache, cacheTTL time.Duration, logger *zap.Logger) LocationService {
	return &locationService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	loc := &model.Location{
		Building:       req.Building,
		LocationName:   req.LocationName,
		LocationNumber: req.LocationNumber,
		Area:           req.Area,
	}
	if err := validateLocation(loc); err != nil {
		return nil, s.fail("create", 0, err)
	}

	err := s.inTx(ctx, func(repo *repository.Repository) error {
		if req.ParentID != nil {
			parent, err := repo.Location.GetByID(ctx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("%w: parent_id=%d", ErrParentNotFound, *req.ParentID)
			}
			loc.ParentID = &parent.ID
		}
		return saveLocation(ctx, repo, loc)
	})
	if err != nil {
		return nil, s.fail("create", 0, err)
	}

	s.invalidateForest(ctx)
	s.logger.Info("地点已创建",
		zap.Uint("id", loc.ID),
		zap.String("location_number", loc.LocationNumber),
	)
	return toLocationResponse(loc), nil
}

// ────────────────────── FindAll ──────────────────────

func (s *locationService) FindAll(ctx context.Context) ([]*dto.LocationResponse, error) {
	key, useCache := s.forestCacheKey(ctx)
	if useCache {
		var cached []*dto.LocationResponse
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取地点树缓存失败", zap.Error(err))
		}
	}

	forest, err := s.repo.Location.ListForest(ctx)
	if err != nil {
		return nil, s.fail("find_all", 0, err)
	}

	result := toForestResponse(forest)

	if useCache && s.cacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("写入地点树缓存失败", zap.Error(err))
		}
	}
	return result, nil
}

// ────────────────────── FindOne ──────────────────────

func (s *locationService) FindOne(ctx context.Context, id uint) (*dto.LocationResponse, error) {
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("find_one", id, err)
	}
	if loc == nil {
		return nil, nil
	}
	return toLocationResponse(loc), nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, id uint, req *dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	if req.DetachParent && req.ParentID != nil {
		return nil, s.fail("update", id, fmt.Errorf("%w: parent_id 与 detach_parent 不能同时提供", ErrInvalidLocation))
	}

	var updated *model.Location
	err := s.inTx(ctx, func(repo *repository.Repository) error {
		loc, err := repo.Location.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if loc == nil {
			return ErrLocationNotFound
		}

		// 仅当 parent_id 提供且与当前值不同时才重新解析上级地点
		if req.ParentID != nil && !sameParent(loc.ParentID, *req.ParentID) {
			parent, err := repo.Location.GetByID(ctx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("%w: parent_id=%d", ErrParentNotFound, *req.ParentID)
			}
			if err := ensureNotDescendant(ctx, repo, loc.ID, parent); err != nil {
				return err
			}
			loc.ParentID = &parent.ID
		} else if req.DetachParent {
			loc.ParentID = nil
		}

		applyLocationUpdate(loc, req)
		if err := validateLocation(loc); err != nil {
			return err
		}

		if err := saveLocation(ctx, repo, loc); err != nil {
			return err
		}
		updated = loc
		return nil
	})
	if err != nil {
		return nil, s.fail("update", id, err)
	}

	s.invalidateForest(ctx)
	return toLocationResponse(updated), nil
}

// ────────────────────── Remove ──────────────────────

func (s *locationService) Remove(ctx context.Context, id uint) (*dto.LocationResponse, error) {
	var removed *model.Location
	err := s.inTx(ctx, func(repo *repository.Repository) error {
		loc, err := repo.Location.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if loc == nil {
			return ErrLocationNotFound
		}

		// 子树计数包含节点自身：1 表示没有子节点，大于 1 才表示存在子地点
		count, err := repo.Location.CountDescendants(ctx, loc)
		if err != nil {
			return err
		}
		if count > 1 {
			return fmt.Errorf("%w: 子树共 %d 个节点", ErrHasChildren, count)
		}

		removed, err = repo.Location.DeleteAndReturn(ctx, loc)
		return err
	})
	if err != nil {
		return nil, s.fail("remove", id, err)
	}

	s.invalidateForest(ctx)
	s.logger.Info("地点已删除", zap.Uint("id", id))
	return toLocationResponse(removed), nil
}

// ── 内部辅助方法 ──

// inTx 在一个事务中执行读-校验-写序列；fn 返回错误时回滚
func (s *locationService) inTx(ctx context.Context, fn func(repo *repository.Repository) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			repository.Rollback(tx)
			panic(r)
		}
	}()

	if err := fn(s.repo.WithTx(tx)); err != nil {
		repository.Rollback(tx)
		return err
	}
	return repository.Commit(tx)
}

// fail 记录日志并包装错误；业务错误记 Warn，存储错误记 Error
func (s *locationService) fail(op string, id uint, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if id != 0 {
		fields = append(fields, zap.Uint("id", id))
	}

	if isBusinessError(err) {
		s.logger.Warn("地点操作被拒绝", fields...)
	} else {
		s.logger.Error("地点操作失败", fields...)
	}
	return &LocationError{Op: op, ID: id, Err: err}
}

// forestCacheKey 返回当前版本的缓存键；版本不可读或有未补做的递增时返回 false，本次读取直接走存储
func (s *locationService) forestCacheKey(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	if pending := s.failedBumps.Load(); pending > 0 {
		ver, err := s.cache.Incr(ctx, forestVersionKey)
		if err != nil {
			s.logger.Warn("补做地点树缓存版本递增失败", zap.Error(err))
			return "", false
		}
		// 期间若又有写入递增失败，保留计数等待下次读取重试
		s.failedBumps.CompareAndSwap(pending, 0)
		return forestKey(ver), s.failedBumps.Load() == 0
	}

	ver, err := s.cache.GetInt64(ctx, forestVersionKey)
	if errors.Is(err, redis.ErrCacheMiss) {
		return forestKey(0), true
	}
	if err != nil {
		s.logger.Warn("读取地点树缓存版本失败", zap.Error(err))
		return "", false
	}
	return forestKey(ver), true
}

// invalidateForest 在写入提交后递增缓存版本，旧版本的键不再被读取
func (s *locationService) invalidateForest(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ver, err := s.cache.Incr(ctx, forestVersionKey)
	if err != nil {
		s.failedBumps.Add(1)
		s.logger.Warn("递增地点树缓存版本失败，后续读取将绕过缓存", zap.Error(err))
		return
	}
	if err := s.cache.Delete(ctx, forestKey(ver-1)); err != nil {
		s.logger.Warn("清除旧版本地点树缓存失败", zap.Error(err), zap.Int64("version", ver-1))
	}
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrInvalidParent) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrHasChildren)
}

// saveLocation 持久化并把约束冲突转换为 ErrInvalidLocation
func saveLocation(ctx context.Context, repo *repository.Repository, loc *model.Location) error {
	err := repo.Location.Save(ctx, loc)
	if errors.Is(err, pkgerrors.ErrConstraintViolation) {
		return fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	return err
}

// ensureNotDescendant 从候选上级地点逐级向上查找，出现 nodeID 即说明会形成环
// 候选上级的物化路径已包含 nodeID 时直接拒绝，无需逐级查询
func ensureNotDescendant(ctx context.Context, repo *repository.Repository, nodeID uint, parent *model.Location) error {
	for _, ancestor := range parent.AncestorIDs() {
		if ancestor == nodeID {
			return fmt.Errorf("%w: parent_id=%d", ErrInvalidParent, parent.ID)
		}
	}

	visited := make(map[uint]bool)
	cur := parent
	for cur != nil {
		if cur.ID == nodeID {
			return fmt.Errorf("%w: parent_id=%d", ErrInvalidParent, parent.ID)
		}
		if visited[cur.ID] {
			return fmt.Errorf("%w: 地点 %d 的祖先链已存在环", ErrInvalidParent, cur.ID)
		}
		visited[cur.ID] = true
		if cur.ParentID == nil {
			return nil
		}

		next, err := repo.Location.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func sameParent(current *uint, requested uint) bool {
	return current != nil && *current == requested
}

// applyLocationUpdate 白名单合并：只覆盖请求中显式提供的字段
func applyLocationUpdate(loc *model.Location, req *dto.UpdateLocationRequest) {
	if req.Building != nil {
		loc.Building = *req.Building
	}
	if req.LocationName != nil {
		loc.LocationName = *req.LocationName
	}
	if req.LocationNumber != nil {
		loc.LocationNumber = *req.LocationNumber
	}
	if req.Area != nil {
		loc.Area = *req.Area
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z"

func toLocationResponse(loc *model.Location) *dto.LocationResponse {
	resp := &dto.LocationResponse{
		ID:             loc.ID,
		Building:       loc.Building,
		LocationName:   loc.LocationName,
		LocationNumber: loc.LocationNumber,
		Area:           loc.Area,
		ParentID:       loc.ParentID,
		Children:       toForestResponse(loc.Children),
		CreatedDate:    loc.CreatedDate.UTC().Format(timeLayout),
		UpdatedDate:    loc.UpdatedDate.UTC().Format(timeLayout),
	}
	return resp
}

func toForestResponse(nodes []*model.Location) []*dto.LocationResponse {
	result := make([]*dto.LocationResponse, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, toLocationResponse(n))
	}
	return result
}
