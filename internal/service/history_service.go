package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
)

// ── 运行记录业务错误 ──

var (
	ErrHistoryEmpty       = errors.New("暂无同步运行记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// HistoryService 同步运行记录查询与导出接口
type HistoryService interface {
	Latest(ctx context.Context) (*model.SyncRunLog, error)
	List(ctx context.Context, limit int) ([]model.SyncRunLog, error)
	// Export 导出运行记录为 Excel，返回内容与建议文件名
	Export(ctx context.Context, limit int) (*bytes.Buffer, string, error)
}

type historyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewHistoryService 创建 HistoryService 实例
func NewHistoryService(repo *repository.Repository, logger *zap.Logger) HistoryService {
	return &historyService{repo: repo, logger: logger}
}

func (s *historyService) Latest(ctx context.Context) (*model.SyncRunLog, error) {
	run, err := s.repo.SyncRun.Latest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryEmpty
		}
		s.logger.Error("查询最近一次运行失败", zap.Error(err))
		return nil, err
	}
	return run, nil
}

func (s *historyService) List(ctx context.Context, limit int) ([]model.SyncRunLog, error) {
	runs, err := s.repo.SyncRun.List(ctx, limit)
	if err != nil {
		s.logger.Error("查询运行记录失败", zap.Error(err))
		return nil, err
	}
	return runs, nil
}

// historyHeaders 导出表头
var historyHeaders = []string{"run_id", "status", "tainted", "started_at (UTC)", "ended_at (UTC)", "courses", "failed stage", "summary"}

// ═══════════════════════════════════════════════════════════
// Export 导出运行记录
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "runs"：每次运行一行，按开始时间倒序
//   - summary 列保留原始多行文本

func (s *historyService) Export(ctx context.Context, limit int) (*bytes.Buffer, string, error) {
	runs, err := s.List(ctx, limit)
	if err != nil {
		return nil, "", err
	}
	if len(runs) == 0 {
		return nil, "", ErrHistoryEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "runs"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "C", 10)
	f.SetColWidth(sheetName, "D", "E", 20)
	f.SetColWidth(sheetName, "F", "G", 24)
	f.SetColWidth(sheetName, "H", "H", 80)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	// 表头
	for i, h := range historyHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(historyHeaders)-1), 1), headerStyle)

	// 数据行
	row := 2
	for _, run := range runs {
		f.SetCellValue(sheetName, cell("A", row), run.RunID)
		f.SetCellValue(sheetName, cell("B", row), run.Status)
		f.SetCellValue(sheetName, cell("C", row), run.Tainted)
		f.SetCellValue(sheetName, cell("D", row), formatUTC(run.StartedAt))
		f.SetCellValue(sheetName, cell("E", row), formatUTC(run.EndedAt))
		f.SetCellValue(sheetName, cell("F", row), courseList(run.LockedCourseIDs))
		f.SetCellValue(sheetName, cell("G", row), failedStage(run.Stages))
		f.SetCellValue(sheetName, cell("H", row), run.Summary)
		f.SetCellStyle(sheetName, cell("H", row), cell("H", row), wrapStyle)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("sync_runs_%s.xlsx", runs[0].StartedAt.UTC().Format("20060102"))
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

func courseList(raw []byte) string {
	var ids []int64
	if len(raw) == 0 || json.Unmarshal(raw, &ids) != nil {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// failedStage 第一个非成功且非跳过的阶段
func failedStage(raw []byte) string {
	var stages []StageResult
	if len(raw) == 0 || json.Unmarshal(raw, &stages) != nil {
		return ""
	}
	for _, st := range stages {
		if st.Status == StageFatal || st.Status == StageTainted {
			return st.Stage
		}
	}
	return ""
}
