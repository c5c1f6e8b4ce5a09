package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/lanlhvn/location-assignment/internal/model"
	"github.com/lanlhvn/location-assignment/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("暂无地点数据可导出")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 每个节点一行，按深度优先顺序排列，名称按层级缩进。
type ExportService interface {
	ExportForest(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const exportSheet = "地点层级"

var exportHeaders = []string{"层级", "ID", "上级 ID", "楼栋", "地点名称", "地点编号", "面积", "创建时间", "更新时间"}

func (s *exportService) ExportForest(ctx context.Context) (*bytes.Buffer, string, error) {
	forest, err := s.repo.Location.ListForest(ctx)
	if err != nil {
		s.logger.Error("查询地点树失败", zap.Error(err))
		return nil, "", err
	}
	if len(forest) == 0 {
		return nil, "", ErrExportEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(exportSheet, "A", "C", 8)
	f.SetColWidth(exportSheet, "D", "D", 12)
	f.SetColWidth(exportSheet, "E", "E", 36)
	f.SetColWidth(exportSheet, "F", "G", 16)
	f.SetColWidth(exportSheet, "H", "I", 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range exportHeaders {
		f.SetCellValue(exportSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(exportSheet, "A1", cell(colName(len(exportHeaders)-1), 1), headerStyle)

	row := 2
	repository.Walk(forest, func(loc *model.Location, depth int) {
		parentID := "-"
		if !loc.IsRoot() {
			parentID = fmt.Sprintf("%d", *loc.ParentID)
		}
		values := []interface{}{
			depth,
			loc.ID,
			parentID,
			loc.Building,
			strings.Repeat("  ", depth) + loc.LocationName,
			loc.LocationNumber,
			loc.Area,
			loc.CreatedDate.UTC().Format(timeLayout),
			loc.UpdatedDate.UTC().Format(timeLayout),
		}
		for i, v := range values {
			f.SetCellValue(exportSheet, cell(colName(i), row), v)
		}
		row++
	})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("地点层级_%s.xlsx", time.Now().Format("20060102"))
	s.logger.Info("地点树已导出", zap.Int("rows", row-2))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
