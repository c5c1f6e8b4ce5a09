package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lanlhvn/location-assignment/internal/model"
	"github.com/lanlhvn/location-assignment/internal/repository"
	pkgerrors "github.com/lanlhvn/location-assignment/pkg/errors"
	"github.com/lanlhvn/location-assignment/pkg/redis"
)

// ── Mock LocationRepository ──
//
// 内存实现，行为与数据库约束保持一致：location_number 唯一、parent_id 外键、子树计数包含自身。
// 对外返回的均为副本，避免测试中意外共享指针。

var errMockIO = errors.New("mock: connection reset")

type mockLocationRepo struct {
	mu        sync.Mutex
	locations map[uint]*model.Location
	nextID    uint

	getCalls int

	failGet    error
	failSave   error
	failDelete error
	failCount  error
	failList   error
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[uint]*model.Location), nextID: 1}
}

func (m *mockLocationRepo) GetByID(_ context.Context, id uint) (*model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failGet != nil {
		return nil, m.failGet
	}
	loc, ok := m.locations[id]
	if !ok {
		return nil, nil
	}
	return cloneLocation(loc), nil
}

func (m *mockLocationRepo) Save(_ context.Context, loc *model.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}

	for id, other := range m.locations {
		if id != loc.ID && other.LocationNumber == loc.LocationNumber {
			return &pkgerrors.StoreError{
				Op:   "location.save",
				Kind: pkgerrors.ErrConstraintViolation,
				Err:  fmt.Errorf("duplicate location_number %q", loc.LocationNumber),
			}
		}
	}
	var parent *model.Location
	if loc.ParentID != nil {
		p, ok := m.locations[*loc.ParentID]
		if !ok {
			return &pkgerrors.StoreError{
				Op:   "location.save",
				Kind: pkgerrors.ErrConstraintViolation,
				Err:  fmt.Errorf("parent %d missing", *loc.ParentID),
			}
		}
		parent = p
	}

	now := time.Now()
	if loc.ID == 0 {
		loc.ID = m.nextID
		m.nextID++
		loc.CreatedDate = now
	}
	loc.UpdatedDate = now
	loc.MPath = parent.ChildPath(loc.ID)
	m.locations[loc.ID] = cloneLocation(loc)
	m.rebuildPaths()
	return nil
}

func (m *mockLocationRepo) DeleteAndReturn(_ context.Context, loc *model.Location) (*model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return nil, m.failDelete
	}
	stored, ok := m.locations[loc.ID]
	if !ok {
		return nil, &pkgerrors.StoreError{
			Op:   "location.delete",
			Kind: pkgerrors.ErrStore,
			Err:  fmt.Errorf("location %d already gone", loc.ID),
		}
	}
	for _, other := range m.locations {
		if other.ParentID != nil && *other.ParentID == loc.ID {
			return nil, &pkgerrors.StoreError{
				Op:   "location.delete",
				Kind: pkgerrors.ErrConstraintViolation,
				Err:  fmt.Errorf("location %d still referenced", loc.ID),
			}
		}
	}
	delete(m.locations, loc.ID)
	return cloneLocation(stored), nil
}

func (m *mockLocationRepo) CountDescendants(_ context.Context, loc *model.Location) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount != nil {
		return 0, m.failCount
	}
	if _, ok := m.locations[loc.ID]; !ok {
		return 0, nil
	}

	count := int64(0)
	queue := []uint{loc.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		count++
		for _, other := range m.locations {
			if other.ParentID != nil && *other.ParentID == id {
				queue = append(queue, other.ID)
			}
		}
	}
	return count, nil
}

func (m *mockLocationRepo) ListForest(_ context.Context) ([]*model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	rows := make([]*model.Location, 0, len(m.locations))
	for _, loc := range m.locations {
		rows = append(rows, cloneLocation(loc))
	}
	return repository.BuildForest(rows), nil
}

// seed 直接写入一条记录（绕过校验），返回其 id
func (m *mockLocationRepo) seed(number string, parentID *uint) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	now := time.Now()
	m.locations[id] = &model.Location{
		ID:             id,
		Building:       "A",
		LocationName:   "Room " + number,
		LocationNumber: number,
		Area:           "10 m2",
		ParentID:       parentID,
		TimestampModel: model.TimestampModel{CreatedDate: now, UpdatedDate: now},
	}
	m.rebuildPaths()
	return id
}

// stored 返回仓库中的原始记录，用于断言未发生写入
func (m *mockLocationRepo) stored(id uint) *model.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loc, ok := m.locations[id]; ok {
		return cloneLocation(loc)
	}
	return nil
}

func (m *mockLocationRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locations)
}

// rebuildPaths 按 parent_id 重新计算全部物化路径
func (m *mockLocationRepo) rebuildPaths() {
	ids := make([]uint, 0, len(m.locations))
	for id := range m.locations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var pathOf func(id uint, seen map[uint]bool) string
	pathOf = func(id uint, seen map[uint]bool) string {
		loc := m.locations[id]
		if loc.ParentID == nil || seen[id] {
			return fmt.Sprintf("%d.", id)
		}
		if _, ok := m.locations[*loc.ParentID]; !ok {
			return fmt.Sprintf("%d.", id)
		}
		seen[id] = true
		return pathOf(*loc.ParentID, seen) + fmt.Sprintf("%d.", id)
	}
	for _, id := range ids {
		m.locations[id].MPath = pathOf(id, map[uint]bool{})
	}
}

func cloneLocation(loc *model.Location) *model.Location {
	c := *loc
	c.Children = nil
	if loc.ParentID != nil {
		pid := *loc.ParentID
		c.ParentID = &pid
	}
	return &c
}

// ── Mock ForestCache ──

type mockForestCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ints    map[string]int64
	sets    int
	deletes int
	incrs   int

	failGet  error
	failSet  error
	failDel  error
	failIncr error
}

func newMockForestCache() *mockForestCache {
	return &mockForestCache{
		data: make(map[string][]byte),
		ints: make(map[string]int64),
	}
}

func (c *mockForestCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return c.failGet
	}
	raw, ok := c.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mockForestCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mockForestCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	if c.failDel != nil {
		return c.failDel
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mockForestCache) GetInt64(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return 0, c.failGet
	}
	v, ok := c.ints[key]
	if !ok {
		return 0, redis.ErrCacheMiss
	}
	return v, nil
}

func (c *mockForestCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incrs++
	if c.failIncr != nil {
		return 0, c.failIncr
	}
	c.ints[key]++
	return c.ints[key], nil
}

// currentKey 当前版本对应的地点树缓存键
func (c *mockForestCache) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return forestKey(c.ints[forestVersionKey])
}

func (c *mockForestCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
