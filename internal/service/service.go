package service

import (
	"go.uber.org/zap"

	"github.com/lanlhvn/location-assignment/config"
	"github.com/lanlhvn/location-assignment/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Location LocationService
	Export   ExportService
}

// NewService 创建 Service 聚合
// cache 为 nil 时地点树查询直接访问数据库
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ForestCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		Location: NewLocationService(repo, cache, cfg.Cache.ForestTTL, logger),
		Export:   NewExportService(repo, logger),
	}
}
