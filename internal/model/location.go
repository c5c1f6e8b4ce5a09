package model

import (
	"strconv"
	"strings"
)

// PathSeparator 物化路径分隔符
const PathSeparator = "."

// Location 地点表，对应 locations
// 以物化路径（mpath）存储树结构：根节点为 "1."，其子节点为 "1.5."，依此类推
type Location struct {
	ID             uint        `gorm:"primaryKey;autoIncrement"                        json:"id"`
	Building       string      `gorm:"type:varchar(20);not null"                       json:"building"`
	LocationName   string      `gorm:"type:varchar(60);not null"                       json:"location_name"`
	LocationNumber string      `gorm:"type:varchar(20);not null;uniqueIndex:locations_location_number_key" json:"location_number"`
	Area           string      `gorm:"type:varchar(20);not null"                       json:"area"`
	ParentID       *uint       `gorm:"index"                                           json:"parent_id"`
	MPath          string      `gorm:"column:mpath;type:varchar(1024);not null;default:''" json:"-"`
	Children       []*Location `gorm:"-"                                               json:"children,omitempty"`
	TimestampModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// IsRoot 是否为根节点
func (l *Location) IsRoot() bool { return l.ParentID == nil }

// ChildPath 计算 id 为 childID 的子节点物化路径；l 为 nil 表示挂在根层
func (l *Location) ChildPath(childID uint) string {
	prefix := ""
	if l != nil {
		prefix = l.MPath
	}
	return prefix + strconv.FormatUint(uint64(childID), 10) + PathSeparator
}

// AncestorIDs 按从根到父的顺序解析物化路径中的祖先 id（不含自身）
func (l *Location) AncestorIDs() []uint {
	parts := strings.Split(strings.TrimSuffix(l.MPath, PathSeparator), PathSeparator)
	if len(parts) <= 1 {
		return nil
	}
	ids := make([]uint, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil
		}
		ids = append(ids, uint(n))
	}
	return ids
}
