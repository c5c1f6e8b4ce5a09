package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lanlhvn/location-assignment/internal/dto"
	"github.com/lanlhvn/location-assignment/internal/service"
	"github.com/lanlhvn/location-assignment/pkg/response"
)

// LocationHandler 地点模块 HTTP 处理器
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListLocations 获取完整地点树
// GET /api/v1/locations
func (h *LocationHandler) ListLocations(c *gin.Context) {
	forest, err := h.locationSvc.FindAll(c.Request.Context())
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, forest)
}

// GetLocation 获取地点详情
// GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	location, err := h.locationSvc.FindOne(c.Request.Context(), id)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}
	if location == nil {
		response.NotFound(c, 17004, "地点不存在")
		return
	}

	response.OK(c, location)
}

// CreateLocation 创建地点
// POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !MustBindJSON(c, &req) {
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.Created(c, location)
}

// UpdateLocation 部分更新地点
// PUT /api/v1/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if !MustBindJSON(c, &req) {
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// DeleteLocation 删除地点，返回删除前的记录
// DELETE /api/v1/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	location, err := h.locationSvc.Remove(c.Request.Context(), id)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// handleLocationError 统一处理地点模块业务错误
func (h *LocationHandler) handleLocationError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrInvalidLocation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 17001, "地点数据无效", errorDetails(err))
	case errors.Is(err, service.ErrInvalidParent):
		response.BadRequest(c, 17002, "上级地点不能是自身或其下级地点")
	case errors.Is(err, service.ErrParentNotFound):
		response.NotFound(c, 17003, "上级地点不存在")
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, 17004, "地点不存在")
	case errors.Is(err, service.ErrHasChildren):
		response.MethodNotAllowed(c, 17005, "地点下存在子地点，无法删除")
	default:
		response.InternalError(c)
	}
}

// errorDetails 去掉 LocationError 的操作前缀，只保留给调用方看的原因
func errorDetails(err error) string {
	var locErr *service.LocationError
	if errors.As(err, &locErr) {
		return locErr.Err.Error()
	}
	return err.Error()
}
