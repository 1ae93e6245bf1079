package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/lrs"
	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses        map[int64]*model.Course
	addOnList      []int64 // 第二次 ListSupportedIDs 起追加的课程（模拟运行期间新增）
	listCalls      int
	updateErr      error
	watermarkIDs   []int64
	watermarkAt    *time.Time
	fieldUpdates   int
	watermarkCalls int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[int64]*model.Course)}
}

func (m *mockCourseRepo) ListSupportedIDs(_ context.Context) ([]int64, error) {
	m.listCalls++
	var ids []int64
	for id := range m.courses {
		ids = append(ids, id)
	}
	if m.listCalls > 1 {
		ids = append(ids, m.addOnList...)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockCourseRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Course, error) {
	var result []model.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) UpdateFields(_ context.Context, course *model.Course, _ []string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	c := *course
	m.courses[course.ID] = &c
	m.fieldUpdates++
	return nil
}

func (m *mockCourseRepo) EarliestWatermark(_ context.Context, ids []int64) (*time.Time, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var earliest *time.Time
	for _, id := range ids {
		c, ok := m.courses[id]
		if !ok || c.DataLastUpdated == nil {
			return nil, nil
		}
		if earliest == nil || c.DataLastUpdated.Before(*earliest) {
			t := c.DataLastUpdated.UTC()
			earliest = &t
		}
	}
	return earliest, nil
}

func (m *mockCourseRepo) UpdateWatermark(_ context.Context, ids []int64, ts time.Time) (int64, error) {
	m.watermarkCalls++
	m.watermarkIDs = append([]int64(nil), ids...)
	at := ts
	m.watermarkAt = &at
	var n int64
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			t := ts
			c.DataLastUpdated = &t
			n++
		}
	}
	return n, nil
}

// ── Mock TermRepository ──

type mockTermRepo struct {
	terms   map[int64]model.AcademicTerm
	created []model.AcademicTerm
}

func newMockTermRepo(ids ...int64) *mockTermRepo {
	m := &mockTermRepo{terms: make(map[int64]model.AcademicTerm)}
	for _, id := range ids {
		m.terms[id] = model.AcademicTerm{ID: id}
	}
	return m
}

func (m *mockTermRepo) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.terms {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockTermRepo) BatchCreate(_ context.Context, terms []model.AcademicTerm) error {
	for _, t := range terms {
		if _, ok := m.terms[t.ID]; ok {
			return errors.New("duplicate key")
		}
		m.terms[t.ID] = t
	}
	m.created = append(m.created, terms...)
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	bySISName map[string]int64
	lookups   [][]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{bySISName: make(map[string]int64)}
}

func (m *mockUserRepo) LookupIDsBySISName(_ context.Context, names []string) (map[string]int64, error) {
	m.lookups = append(m.lookups, names)
	result := make(map[string]int64)
	for _, n := range names {
		if id, ok := m.bySISName[n]; ok {
			result[n] = id
		}
	}
	return result, nil
}

// ── Mock TableRepository ──

type mockTableRepo struct {
	tables     map[string][]map[string]interface{}
	replaceErr map[string]error
	appendErr  error
	deletes    []string // "table where"
	writes     int
}

func newMockTableRepo() *mockTableRepo {
	return &mockTableRepo{
		tables:     make(map[string][]map[string]interface{}),
		replaceErr: make(map[string]error),
	}
}

// DeleteAll 仅支持同步任务使用的两种条件
func (m *mockTableRepo) DeleteAll(_ context.Context, table, where string, params ...interface{}) (int64, error) {
	m.writes++
	m.deletes = append(m.deletes, strings.TrimSpace(table+" "+where))

	keep := func(map[string]interface{}) bool { return false }
	switch {
	case where == "":
	case strings.Contains(where, "access_time >"):
		cutoff := params[0].(time.Time)
		keep = func(r map[string]interface{}) bool {
			t := warehouse.ToUTCTime(r["access_time"])
			return t == nil || !t.After(cutoff)
		}
	case strings.Contains(where, "course_id IN"):
		ids := make(map[int64]bool)
		for _, id := range params[0].([]int64) {
			ids[id] = true
		}
		keep = func(r map[string]interface{}) bool {
			id, _ := warehouse.ToInt64(r["course_id"])
			return !ids[id]
		}
	default:
		return 0, errors.New("unsupported where: " + where)
	}

	var kept []map[string]interface{}
	for _, r := range m.tables[table] {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	deleted := int64(len(m.tables[table]) - len(kept))
	m.tables[table] = kept
	return deleted, nil
}

func (m *mockTableRepo) BulkAppend(_ context.Context, table string, rows []map[string]interface{}) (int64, error) {
	m.writes++
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.tables[table] = append(m.tables[table], rows...)
	return int64(len(rows)), nil
}

func (m *mockTableRepo) Replace(_ context.Context, table string, rows []map[string]interface{}) (int64, int64, error) {
	m.writes++
	if err := m.replaceErr[table]; err != nil {
		return 0, 0, err
	}
	deleted := int64(len(m.tables[table]))
	m.tables[table] = append([]map[string]interface{}(nil), rows...)
	return deleted, int64(len(rows)), nil
}

// ── Mock ResourceRepository ──

type mockResourceRepo struct {
	resources map[string]model.Resource
	upsertErr error
	writes    int
}

func newMockResourceRepo() *mockResourceRepo {
	return &mockResourceRepo{resources: make(map[string]model.Resource)}
}

func (m *mockResourceRepo) Upsert(_ context.Context, resources []model.Resource) error {
	m.writes++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, r := range resources {
		m.resources[r.ResourceID] = r
	}
	return nil
}

func (m *mockResourceRepo) UpdateName(_ context.Context, resourceID, name string) (int64, error) {
	m.writes++
	r, ok := m.resources[resourceID]
	if !ok {
		return 0, nil
	}
	r.Name = name
	m.resources[resourceID] = r
	return 1, nil
}

func (m *mockResourceRepo) Delete(_ context.Context, resourceID string) (int64, error) {
	m.writes++
	if _, ok := m.resources[resourceID]; !ok {
		return 0, nil
	}
	delete(m.resources, resourceID)
	return 1, nil
}

// ── Mock SyncRunRepository ──

type mockSyncRunRepo struct {
	runs []model.SyncRunLog
}

func (m *mockSyncRunRepo) Create(_ context.Context, run *model.SyncRunLog) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockSyncRunRepo) Latest(_ context.Context) (*model.SyncRunLog, error) {
	if len(m.runs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := m.runs[0]
	for _, r := range m.runs[1:] {
		if r.StartedAt.After(latest.StartedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *mockSyncRunRepo) List(_ context.Context, limit int) ([]model.SyncRunLog, error) {
	runs := append([]model.SyncRunLog(nil), m.runs...)
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ── Fake 数据仓库 ──

type queryFunc func(params map[string]interface{}) (*warehouse.Table, error)

type fakeWarehouse struct {
	handlers map[string]queryFunc
	calls    map[string]int
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{handlers: make(map[string]queryFunc), calls: make(map[string]int)}
}

func (f *fakeWarehouse) on(query string, fn queryFunc) {
	f.handlers[query] = fn
}

func (f *fakeWarehouse) Query(_ context.Context, query string, params map[string]interface{}) (*warehouse.Table, error) {
	f.calls[query]++
	fn, ok := f.handlers[query]
	if !ok {
		return warehouse.NewTable(nil), nil
	}
	return fn(params)
}

// ── Fake 访问事件源 ──

type fakeSource struct {
	kind    string
	cutoff  string
	results []*warehouse.Table // 按调用顺序返回，用尽后返回 events 的过滤结果
	events  *warehouse.Table   // 按课程与水位过滤后返回，模拟真实查询
	billed  int64
	err     error
	queries []string
	params  []lrs.Params
}

func (f *fakeSource) Kind() string            { return f.kind }
func (f *fakeSource) CutoffCondition() string { return f.cutoff }
func (f *fakeSource) Close() error            { return nil }

func (f *fakeSource) Query(_ context.Context, query string, params lrs.Params) (*warehouse.Table, lrs.QueryCost, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, lrs.QueryCost{}, f.err
	}
	if len(f.results) == 0 {
		return f.filtered(params), lrs.QueryCost{BytesBilled: f.billed}, nil
	}
	t := f.results[0]
	f.results = f.results[1:]
	return t, lrs.QueryCost{BytesBilled: f.billed}, nil
}

func (f *fakeSource) filtered(params lrs.Params) *warehouse.Table {
	if f.events == nil {
		return warehouse.NewTable(nil)
	}
	courses := make(map[int64]bool)
	for _, id := range params.CourseIDs {
		courses[id] = true
	}
	return f.events.Filter(func(r warehouse.Row) bool {
		id, _ := warehouse.ToInt64(r["course_id"])
		if !courses[id] {
			return false
		}
		at := warehouse.ToUTCTime(r["access_time"])
		return params.DataLastUpdated == nil || (at != nil && at.After(*params.DataLastUpdated))
	})
}

// ── 测试辅助 ──

type mocks struct {
	course   *mockCourseRepo
	term     *mockTermRepo
	user     *mockUserRepo
	table    *mockTableRepo
	resource *mockResourceRepo
	syncRun  *mockSyncRunRepo
	repo     *repository.Repository
}

func newMocks() *mocks {
	m := &mocks{
		course:   newMockCourseRepo(),
		term:     newMockTermRepo(),
		user:     newMockUserRepo(),
		table:    newMockTableRepo(),
		resource: newMockResourceRepo(),
		syncRun:  &mockSyncRunRepo{},
	}
	m.repo = &repository.Repository{
		Course:   m.course,
		Term:     m.term,
		User:     m.user,
		Table:    m.table,
		Resource: m.resource,
		SyncRun:  m.syncRun,
	}
	return m
}

// writes 运营库写操作总数（含运行记录）
func (m *mocks) writes() int {
	return m.course.fieldUpdates + m.course.watermarkCalls + len(m.term.created) +
		m.table.writes + m.resource.writes + len(m.syncRun.runs)
}

func testLogger() *zap.Logger { return zap.NewNop() }

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt64(v int64) *int64 { return &v }

func mkTable(columns []string, rows ...warehouse.Row) *warehouse.Table {
	return warehouse.NewTable(columns, rows...)
}

// courseRow 数据仓库中的课程规范记录
func courseRow(id, termID int64, name string, start, end *time.Time) warehouse.Row {
	r := warehouse.Row{
		"id":                 id,
		"canvas_id":          id - 17700000000000000,
		"enrollment_term_id": termID,
		"name":               name,
		"start_at":           nil,
		"conclude_at":        nil,
	}
	if start != nil {
		r["start_at"] = *start
	}
	if end != nil {
		r["conclude_at"] = *end
	}
	return r
}

var courseColumns = []string{"id", "canvas_id", "enrollment_term_id", "name", "start_at", "conclude_at"}

// onCourses 为 CourseQuery 注册按 course_id 返回的行
func onCourses(wh *fakeWarehouse, rows map[int64]warehouse.Row) {
	wh.on(warehouse.CourseQuery, func(params map[string]interface{}) (*warehouse.Table, error) {
		id, _ := warehouse.ToInt64(params["course_id"])
		if r, ok := rows[id]; ok {
			return mkTable(courseColumns, r), nil
		}
		return mkTable(courseColumns), nil
	})
}
