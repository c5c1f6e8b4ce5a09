package repository

import (
	"sort"

	"github.com/lanlhvn/location-assignment/internal/model"
)

// BuildForest 将扁平的地点列表组装为森林
//
// 子节点按 id 升序（即插入顺序）排列。父节点不在列表中的节点视为根节点，
// 保证每个节点恰好出现一次。会覆盖输入节点的 Children 字段。
func BuildForest(rows []*model.Location) []*model.Location {
	sorted := make([]*model.Location, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[uint]*model.Location, len(sorted))
	for _, n := range sorted {
		n.Children = nil
		byID[n.ID] = n
	}

	roots := make([]*model.Location, 0)
	for _, n := range sorted {
		if n.ParentID != nil && *n.ParentID != n.ID {
			if p, ok := byID[*n.ParentID]; ok {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// Walk 深度优先遍历森林，fn 收到节点及其深度（根为 0）
func Walk(forest []*model.Location, fn func(loc *model.Location, depth int)) {
	var visit func(nodes []*model.Location, depth int)
	visit = func(nodes []*model.Location, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(forest, 0)
}
