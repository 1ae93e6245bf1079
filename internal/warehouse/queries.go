package warehouse

// UDP（Unizin Data Platform）上下文库查询
// 课程 ID 在 keymap 中为字符串，单课程查询以 @course_id 绑定字符串形式的 ID

// CourseQuery 单门课程的规范记录
const CourseQuery = `
SELECT
	co2.lms_int_id AS id,
	co2.lms_ext_id AS canvas_id,
	at2.lms_int_id AS enrollment_term_id,
	co.title AS name,
	co.start_date AS start_at,
	co.end_date AS conclude_at
FROM
	entity.course_offering co,
	entity.academic_session as3,
	keymap.course_offering co2,
	keymap.academic_term at2
WHERE co2.lms_int_id = @course_id
	AND co.course_offering_id = co2.id
	AND co.academic_session_id = as3.academic_session_id
	AND at2.id = as3.academic_term_id`

// TermQuery 全部学期
const TermQuery = `
SELECT
	ka.lms_int_id AS id,
	ka.lms_ext_id AS canvas_id,
	a.name AS name,
	a.term_begin_date AS date_start,
	a.term_end_date AS date_end
FROM
	entity.academic_term AS a
	LEFT JOIN keymap.academic_term AS ka ON ka.id = a.academic_term_id
WHERE
	ka.lms_ext_id IS NOT NULL`

// UserQuery 课程的学生、助教与教师
const UserQuery = `
SELECT
	p2.lms_ext_id AS user_id,
	p.first_name || ' ' || p.last_name AS name,
	'' AS sis_id,
	lower(split_part(pe.email_address, '@', 1)) AS sis_name,
	co.lms_int_id AS course_id,
	cg.le_current_score AS current_grade,
	cg.le_final_score AS final_grade,
	CASE
		WHEN cse.role = 'Student' THEN 'StudentEnrollment'
		WHEN cse.role = 'TeachingAssistant' THEN 'TaEnrollment'
		WHEN cse.role = 'Teacher' THEN 'TeacherEnrollment'
		ELSE '' END
		AS enrollment_type,
	cse.role_status
FROM entity.course_section_enrollment cse
LEFT JOIN entity.course_section cs
	ON cse.course_section_id = cs.course_section_id
LEFT JOIN keymap.course_offering co
	ON cs.course_offering_id = co.id
LEFT JOIN entity.person p
	ON cse.person_id = p.person_id
LEFT JOIN keymap.person p2
	ON p.person_id = p2.id
LEFT JOIN entity.person_email pe
	ON p.person_id = pe.person_id
LEFT JOIN entity.course_grade cg
	ON cse.course_section_id = cg.course_section_id AND cse.person_id = cg.person_id
WHERE
	co.lms_int_id = @course_id
	AND cse.role IN ('Student', 'TeachingAssistant', 'Teacher')
	AND lower(pe.email_type) = 'organizational'
ORDER BY p2.lms_ext_id`

// AssignmentGroupQuery 课程的作业分组及分组总分
const AssignmentGroupQuery = `
WITH assignment_details AS (
	SELECT la.due_date, title, la.course_offering_id, la.learner_activity_id, la.points_possible, la.learner_activity_group_id
	FROM entity.learner_activity la, keymap.course_offering co
	WHERE
		la.visibility = 'everyone'
		AND la.status = 'published'
		AND la.course_offering_id = co.id
		AND co.lms_int_id = @course_id
), assignment_grp AS (
	SELECT lg.*
	FROM entity.learner_activity_group lg, keymap.course_offering co
	WHERE
		lg.status = 'available'
		AND lg.course_offering_id = co.id
		AND co.lms_int_id = @course_id
), assign_more AS (
	SELECT DISTINCT(a.learner_activity_group_id), da.group_points
	FROM assignment_details a
	JOIN (
		SELECT learner_activity_group_id, sum(points_possible) AS group_points
		FROM assignment_details
		GROUP BY learner_activity_group_id
	) AS da
		ON a.learner_activity_group_id = da.learner_activity_group_id
), grp_full AS (
	SELECT a.group_points, b.learner_activity_group_id
	FROM assign_more a
	RIGHT JOIN assignment_grp b
		ON a.learner_activity_group_id = b.learner_activity_group_id
), assignment_grp_points AS (
	SELECT ag.*, am.group_points AS group_points
	FROM assignment_grp ag JOIN grp_full am ON ag.learner_activity_group_id = am.learner_activity_group_id
)
SELECT
	learner_activity_group_id AS id,
	course_offering_id AS course_id,
	group_weight AS weight,
	name AS name,
	group_points AS group_points
FROM assignment_grp_points`

// AssignmentQuery 课程已发布作业；local_date 为截止时间换算到 @time_zone
const AssignmentQuery = `
SELECT
	la.due_date AS due_date,
	la.due_date AT TIME ZONE 'utc' AT TIME ZONE @time_zone AS local_date,
	la.title AS name,
	co.lms_int_id AS course_id,
	la_km.lms_int_id AS id,
	la.points_possible AS points_possible,
	lag_km.lms_int_id AS assignment_group_id
FROM
	entity.learner_activity la,
	keymap.course_offering co,
	keymap.learner_activity la_km,
	keymap.learner_activity_group lag_km
WHERE
	la.visibility = 'everyone'
	AND la.status = 'published'
	AND la.course_offering_id = co.id
	AND co.lms_int_id = @course_id
	AND la.learner_activity_id = la_km.id
	AND la.learner_activity_group_id = lag_km.id`

// SubmissionQuery 课程提交记录
// 成绩未发布（posted_at 为空）或未完成评分的提交 score 置空
const SubmissionQuery = `
WITH sub_fact AS (
	SELECT submission_id, assignment_id, course_id, user_id, global_canvas_id, published_score
	FROM submission_fact sf JOIN user_dim u ON sf.user_id = u.id
	WHERE course_id = @course_id
), enrollment AS (
	SELECT DISTINCT(user_id) FROM enrollment_dim
	WHERE course_id = @course_id AND workflow_state = 'active' AND type = 'StudentEnrollment'
), sub_with_enroll AS (
	SELECT sf.* FROM sub_fact sf JOIN enrollment e ON e.user_id = sf.user_id
), submission_time AS (
	SELECT sd.id, sd.submitted_at, sd.graded_at,
		sd.posted_at AT TIME ZONE 'utc' AT TIME ZONE @time_zone AS grade_posted_local_date,
		sd.workflow_state AS submission_workflow_state
	FROM submission_dim sd JOIN sub_fact suf ON sd.id = suf.submission_id
), assign_fact AS (
	SELECT s.*, a.title FROM assignment_dim a JOIN sub_with_enroll s ON s.assignment_id = a.id
	WHERE a.course_id = @course_id AND a.workflow_state = 'published'
), assign_sub_time AS (
	SELECT a.*, t.submitted_at, t.graded_at, t.grade_posted_local_date, t.submission_workflow_state
	FROM assign_fact a JOIN submission_time t ON a.submission_id = t.id
), all_assign_sub AS (
	SELECT
		submission_id AS id,
		assignment_id AS assignment_id,
		course_id,
		global_canvas_id AS user_id,
		(CASE WHEN (grade_posted_local_date IS NULL OR submission_workflow_state != 'graded') THEN NULL ELSE round(published_score, 1) END) AS score,
		submitted_at AS submitted_at,
		graded_at AS graded_date,
		grade_posted_local_date
	FROM assign_sub_time ORDER BY assignment_id
)
SELECT f.*, f1.avg_score
FROM all_assign_sub f
JOIN (SELECT assignment_id, round(avg(score), 1) AS avg_score FROM all_assign_sub GROUP BY assignment_id) AS f1
	ON f.assignment_id = f1.assignment_id`

// WeightConsiderationQuery 课程分组权重之和是否大于 1；结果只有一个布尔列，不含课程 ID
const WeightConsiderationQuery = `
WITH course AS (
	SELECT
		ag2.lms_ext_id AS course_id,
		sum(ag.group_weight) AS group_weight
	FROM entity.learner_activity_group ag, keymap.learner_activity_group ag2
	WHERE
		ag2.lms_int_id = @course_id
		AND ag.learner_activity_group_id = ag2.id
	GROUP BY ag.course_offering_id
	HAVING sum(ag.group_weight) > 1
)
SELECT CASE WHEN EXISTS (
	SELECT * FROM course WHERE group_weight > 1
) THEN CAST(1 AS boolean) ELSE CAST(0 AS boolean) END AS consider_weight`

// UnizinMetadataQuery 仓库元信息
const UnizinMetadataQuery = `
SELECT
	key AS pkey,
	value AS pvalue
FROM
	unizin_metadata`

// CanvasFileQuery 课程文件的可用状态与显示名
const CanvasFileQuery = `SELECT id, file_state, display_name FROM file_dim WHERE course_id IN @course_ids`
