package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ── 运行级错误分类 ──

var (
	// ErrValidation 课程 ID 校验失败：整次运行终止，不做任何写入
	ErrValidation = errors.New("course id validation failed")
	// ErrSyncStage 全量替换类表同步失败：整次运行终止
	ErrSyncStage = errors.New("sync stage failed")
	// ErrResourceSync 资源访问同步失败：运行被标记为 tainted，后续阶段继续
	ErrResourceSync = errors.New("resource sync failed")
	// ErrRunLocked 已有其他运行持有锁
	ErrRunLocked = errors.New("another sync run holds the lock")
	// ErrMissingColumn 配置的查询缺少预期列（降级处理，仅告警）
	ErrMissingColumn = errors.New("query result is missing an expected column")
)

// ValidationFailure 列出数据仓库中不存在的课程 ID
type ValidationFailure struct {
	InvalidIDs []int64
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("Those course ids are invalid: %s", FormatIDs(e.InvalidIDs))
}

func (e *ValidationFailure) Unwrap() error { return ErrValidation }

// StageError 记录失败阶段名称，Kind 为上面的分类哨兵
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap 同时暴露分类与原始错误，errors.Is 可匹配二者
func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// FormatIDs 以 [1, 2, 3] 形式输出 ID 列表
func FormatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
