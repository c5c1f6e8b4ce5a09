package dto

// ── 地点模块 DTO ──

// CreateLocationRequest 创建地点请求
type CreateLocationRequest struct {
	Building       string `json:"building"        binding:"required,min=1,max=20"`
	LocationName   string `json:"location_name"   binding:"required,min=3,max=60"`
	LocationNumber string `json:"location_number" binding:"required,min=3,max=20"`
	Area           string `json:"area"            binding:"required,min=3,max=20"`
	ParentID       *uint  `json:"parent_id"       binding:"omitempty,gt=0"`
}

// UpdateLocationRequest 更新地点请求（部分更新：仅非 nil 字段生效）
type UpdateLocationRequest struct {
	Building       *string `json:"building"        binding:"omitempty,min=1,max=20"`
	LocationName   *string `json:"location_name"   binding:"omitempty,min=3,max=60"`
	LocationNumber *string `json:"location_number" binding:"omitempty,min=3,max=20"`
	Area           *string `json:"area"            binding:"omitempty,min=3,max=20"`
	ParentID       *uint   `json:"parent_id"       binding:"omitempty,gt=0"`
	// DetachParent 为 true 时将节点移到根层；不可与 parent_id 同时提供
	DetachParent bool `json:"detach_parent"`
}

// LocationResponse 地点信息响应（含递归子节点）
type LocationResponse struct {
	ID             uint                `json:"id"`
	Building       string              `json:"building"`
	LocationName   string              `json:"location_name"`
	LocationNumber string              `json:"location_number"`
	Area           string              `json:"area"`
	ParentID       *uint               `json:"parent_id"`
	Children       []*LocationResponse `json:"children"`
	CreatedDate    string              `json:"created_date"`
	UpdatedDate    string              `json:"updated_date"`
}
