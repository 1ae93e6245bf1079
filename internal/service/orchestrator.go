package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
	"github.com/zqian/my-learning-analytics/pkg/lock"
)

// RunReport 单次运行的结果
type RunReport struct {
	RunID          string        `json:"run_id"`
	Status         string        `json:"status"` // model.RunStatus*
	Tainted        bool          `json:"tainted"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	CourseIDs      []int64       `json:"course_ids"`
	AddedDuringRun []int64       `json:"added_during_run,omitempty"`
	Stages         []StageResult `json:"stages"`
	Summary        string        `json:"summary"`
}

// Orchestrator 同步编排接口
//
// 阶段顺序：加锁 → 课程校验 → 学期 → 课程字段 → 全量替换表 → 资源访问（可关闭）
// → unizin 元信息（按仓库类型）→ 水位提交 → 运行记录。
// 校验失败与全量替换失败返回 error；资源类失败只污染本次运行，水位保持不变。
type Orchestrator interface {
	Run(ctx context.Context) (*RunReport, error)
}

// Stages 编排器依赖的各阶段
type Stages struct {
	Validator      CourseValidator
	Term           TermSyncer
	Merger         CourseMerger
	Table          TableSyncer
	ResourceAccess ResourceAccessSyncer
	CanvasResource CanvasResourceSyncer
}

// OrchestratorOptions 编排开关
type OrchestratorOptions struct {
	ResourceSyncEnabled bool // views_disabled 不含 show_resources_accessed
	IsUnizin            bool
	Clock               func() time.Time
}

type orchestrator struct {
	stages Stages
	repo   *repository.Repository
	locker lock.Locker
	opts   OrchestratorOptions
	logger *zap.Logger
}

// NewOrchestrator 创建 Orchestrator 实例
func NewOrchestrator(stages Stages, repo *repository.Repository, locker lock.Locker, opts OrchestratorOptions, logger *zap.Logger) Orchestrator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if locker == nil {
		locker = lock.NewNoopLocker()
	}
	return &orchestrator{stages: stages, repo: repo, locker: locker, opts: opts, logger: logger}
}

// run 单次运行的可变状态，仅在 Run 内部使用
type run struct {
	report *RunReport
	out    summary
}

func (r *run) record(res StageResult) {
	r.report.Stages = append(r.report.Stages, res)
	r.out.write(res.Summary)
}

func (o *orchestrator) Run(ctx context.Context) (*RunReport, error) {
	o.logger.Info("** MyLA 同步开始")

	start := o.opts.Clock().UTC()
	r := &run{report: &RunReport{RunID: uuid.New().String(), StartedAt: start}}
	r.out.line("Start cron: %s UTC", formatUTC(start))

	// ── 加锁 ──
	release, err := o.locker.Acquire(ctx)
	if err != nil {
		o.logger.Error("获取运行锁失败", zap.Error(err))
		r.out.line("ERROR: %v", err)
		return o.finish(ctx, r, model.RunStatusFailed, false), err
	}
	defer release()

	// ── 课程校验（闸门）──
	rc, err := o.stages.Validator.Validate(ctx, r.report.RunID, start)
	if err != nil {
		var vf *apperrors.ValidationFailure
		if errors.As(err, &vf) {
			o.logger.Error("存在无效课程 ID，运行终止", zap.Int64s("invalid_ids", vf.InvalidIDs))
			r.out.line("ERROR: %s", vf.Error())
			// 校验失败不写入任何数据（包括运行记录）
			return o.finish(ctx, r, model.RunStatusInvalid, false), err
		}
		r.out.line("ERROR: %v", err)
		return o.finish(ctx, r, model.RunStatusFailed, true), err
	}
	r.report.CourseIDs = rc.CourseIDs()

	// ── 学期 ──
	o.logger.Info("** term")
	if res := o.stages.Term.Sync(ctx); o.recordFatal(r, res) {
		return o.finish(ctx, r, model.RunStatusFailed, true), res.Err
	}

	// ── 课程相关表 ──
	if rc.Empty() {
		o.logger.Info("锁定课程为空，跳过课程相关表")
		r.record(skipped(StageCourse, "no locked courses", "Skipped course-related table updates.\n"))
	} else {
		o.logger.Info("** course")
		if res := o.stages.Merger.MergeAll(ctx, rc); o.recordFatal(r, res) {
			return o.finish(ctx, r, model.RunStatusFailed, true), res.Err
		}

		for _, kind := range CourseTableKinds {
			desc, _ := Descriptor(kind)
			o.logger.Info("** " + desc.Table)
			if res := o.stages.Table.Sync(ctx, desc, rc); o.recordFatal(r, res) {
				return o.finish(ctx, r, model.RunStatusFailed, true), res.Err
			}
		}

		o.logger.Info("** resources")
		if o.opts.ResourceSyncEnabled {
			o.syncResources(ctx, r, rc)
		} else {
			r.record(skipped(StageResourceAccess, "show_resources_accessed disabled", ""))
		}
	}

	// ── unizin 元信息 ──
	if o.opts.IsUnizin {
		o.logger.Info("** informational")
		desc, _ := Descriptor(KindUnizinMetadata)
		if res := o.stages.Table.Sync(ctx, desc, rc); o.recordFatal(r, res) {
			return o.finish(ctx, r, model.RunStatusFailed, true), res.Err
		}
	}

	o.warnAddedCourses(ctx, r, rc)

	// ── 水位提交 ──
	if r.report.Tainted {
		o.logger.Warn("本次运行存在资源同步错误，data_last_updated 未更新")
		r.out.line("data_last_updated not updated because of an error during this run")
		return o.finish(ctx, r, model.RunStatusTainted, true), nil
	}
	if !rc.Empty() {
		o.logger.Info("推进课程水位", zap.Time("run_start", start))
		n, err := o.repo.Course.UpdateWatermark(ctx, rc.CourseIDs(), start)
		if err != nil {
			res := fatalResult(StageWatermark, "", err)
			o.recordFatal(r, res)
			return o.finish(ctx, r, model.RunStatusFailed, true), res.Err
		}
		r.record(succeeded(StageWatermark, "", n))
	}
	return o.finish(ctx, r, model.RunStatusSuccess, true), nil
}

// syncResources 资源访问与 Canvas 资源名称同步；前者失败时不再执行后者
func (o *orchestrator) syncResources(ctx context.Context, r *run, rc *RunContext) {
	res := o.stages.ResourceAccess.Sync(ctx, rc)
	r.record(res)
	if res.Status == StageTainted {
		o.taint(r, res)
		return
	}

	res = o.stages.CanvasResource.Sync(ctx, rc)
	r.record(res)
	if res.Status == StageTainted {
		o.taint(r, res)
	}
}

func (o *orchestrator) taint(r *run, res StageResult) {
	o.logger.Error("资源同步失败，本次运行被标记为 tainted",
		zap.String("stage", res.Stage),
		zap.Error(res.Err),
	)
	r.out.line("ERROR: %s", res.Reason)
	r.report.Tainted = true
}

// recordFatal 记录阶段结果，返回是否需要中止
func (o *orchestrator) recordFatal(r *run, res StageResult) bool {
	r.record(res)
	if res.Status != StageFatal {
		return false
	}
	o.logger.Error("同步阶段失败，运行中止", zap.String("stage", res.Stage), zap.Error(res.Err))
	r.out.line("ERROR: %s: %s", res.Stage, res.Reason)
	return true
}

// warnAddedCourses 运行期间新增的课程本次不拉取数据，仅告警
func (o *orchestrator) warnAddedCourses(ctx context.Context, r *run, rc *RunContext) {
	current, err := o.repo.Course.ListSupportedIDs(ctx)
	if err != nil {
		o.logger.Warn("读取课程列表失败，跳过新增课程检查", zap.Error(err))
		return
	}
	added := mapset.NewThreadUnsafeSet(current...).Difference(mapset.NewThreadUnsafeSet(rc.CourseIDs()...))
	if added.Cardinality() == 0 {
		return
	}
	ids := added.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	r.report.AddedDuringRun = ids
	o.logger.Warn("运行期间新增了课程，本次未拉取这些课程的数据",
		zap.Int("count", len(ids)),
		zap.Int64s("course_ids", ids),
	)
}

// finish 写入结束行；persist 为 true 时保存运行记录（失败只记日志）
func (o *orchestrator) finish(ctx context.Context, r *run, status string, persist bool) *RunReport {
	end := o.opts.Clock().UTC()
	r.out.line("End cron: %s UTC", formatUTC(end))

	rep := r.report
	rep.Status = status
	rep.EndedAt = end
	rep.Summary = r.out.String()
	o.logger.Info("************ total status", zap.String("status", status), zap.String("summary", rep.Summary))

	if persist {
		o.saveRunLog(ctx, rep)
	}
	return rep
}

func (o *orchestrator) saveRunLog(ctx context.Context, rep *RunReport) {
	stages, err := json.Marshal(rep.Stages)
	if err != nil {
		o.logger.Warn("序列化阶段结果失败", zap.Error(err))
		stages = nil
	}
	ids, _ := json.Marshal(rep.CourseIDs)

	entry := &model.SyncRunLog{
		RunID:           rep.RunID,
		Status:          rep.Status,
		Tainted:         rep.Tainted,
		StartedAt:       rep.StartedAt,
		EndedAt:         rep.EndedAt,
		LockedCourseIDs: datatypes.JSON(ids),
		Stages:          datatypes.JSON(stages),
		Summary:         rep.Summary,
	}
	if err := o.repo.SyncRun.Create(ctx, entry); err != nil {
		o.logger.Warn("保存运行记录失败", zap.String("run_id", rep.RunID), zap.Error(err))
	}
}
