// Package postgres implements the filtered delegate against PostgreSQL
// using database/sql and $N placeholders.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/delegate"
)

// Delegate is the PostgreSQL-backed filtered delegate. The zero value is
// not usable; construct with New or Open.
type Delegate struct {
	q delegate.Querier
}

// New wraps an open database handle. db may be shared across the whole
// process; the delegate does not assume exclusive ownership of it.
func New(db *sql.DB) *Delegate {
	return &Delegate{q: db}
}

// Open dials dsn through the pgx stdlib driver and wraps the resulting
// pool in a Delegate.
func Open(dsn string) (*Delegate, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db), nil
}

// triggerCols lists the unqualified columns of a full trigger row, in the
// order scanTriggerRow expects them.
var triggerCols = []string{
	delegate.ColTriggerGroup, delegate.ColTriggerName,
	delegate.ColJobGroup, delegate.ColJobName,
	delegate.ColNextFireTime, delegate.ColPrevFireTime,
	delegate.ColState, delegate.ColFireInstance, delegate.ColCalendarName,
}

func triggerColsSQL() string {
	return strings.Join(triggerCols, ", ")
}

// qualifiedTriggerColsSQL renders triggerCols prefixed with a table alias,
// for queries that join triggers against job_details.
func qualifiedTriggerColsSQL(alias string) string {
	cols := make([]string, len(triggerCols))
	for i, c := range triggerCols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// joinJobDetails renders the triggers-to-job_details join used by every
// query that needs to filter or group by job type: triggers only carries
// (job_group, job_name), job_type lives on job_details alone.
func joinJobDetails() string {
	return fmt.Sprintf("%s t JOIN %s jd ON t.%s = jd.%s AND t.%s = jd.%s",
		delegate.TableTriggers, delegate.TableJobDetails,
		delegate.ColJobGroup, delegate.ColJobGroup, delegate.ColJobName, delegate.ColJobName)
}

func scanTriggerRow(row interface{ Scan(dest ...any) error }) (*triggerstore.Trigger, error) {
	var (
		triggerGroup, triggerName string
		jobGroup, jobName         string
		nextFireTime              time.Time
		prevFireTime              sql.NullTime
		state                     string
		fireInstance              sql.NullString
		calendarName              sql.NullString
	)
	if err := row.Scan(&triggerGroup, &triggerName, &jobGroup, &jobName,
		&nextFireTime, &prevFireTime, &state, &fireInstance, &calendarName); err != nil {
		return nil, err
	}
	st, ok := triggerstore.ParseTriggerState(state)
	if !ok {
		return nil, fmt.Errorf("unrecognized trigger state %q", state)
	}
	return &triggerstore.Trigger{
		Key:            triggerstore.TriggerKey{Group: triggerGroup, Name: triggerName},
		JobKey:         triggerstore.JobKey{Group: jobGroup, Name: jobName},
		NextFireTime:   nextFireTime,
		PrevFireTime:   prevFireTime.Time,
		State:          st,
		FireInstanceID: fireInstance.String,
		CalendarName:   calendarName.String,
	}, nil
}

// sortedExcluded renders a snapshot's excluded set into a sorted slice so
// generated SQL and its argument order are deterministic across calls.
func sortedExcluded(snapshot delegate.FilterSnapshot) []string {
	out := make([]string, 0, len(snapshot.Excluded))
	for t := range snapshot.Excluded {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// buildNotIn renders "column NOT IN ($n, ...)" with placeholders starting
// at startArg. Returns ("", nil) when values is empty.
func buildNotIn(column string, values []string, startArg int) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", startArg+i)
		args[i] = v
	}
	return fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(placeholders, ", ")), args
}

func (d *Delegate) SelectTriggersToAcquire(ctx context.Context, noLaterThan time.Time, maxCount int, snapshot delegate.FilterSnapshot) ([]*triggerstore.Trigger, error) {
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot), 3)
	where := fmt.Sprintf("t.%s = $1 AND t.%s <= $2", delegate.ColState, delegate.ColNextFireTime)
	if notIn != "" {
		where += " AND " + notIn
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY t.%s ASC, t.%s ASC, t.%s ASC
		LIMIT %d`,
		qualifiedTriggerColsSQL("t"), joinJobDetails(), where,
		delegate.ColNextFireTime, delegate.ColTriggerGroup, delegate.ColTriggerName, maxCount)

	args := append([]any{string(triggerstore.StateWaiting), noLaterThan}, notInArgs...)
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select triggers to acquire: %w", err)
	}
	defer rows.Close()

	var out []*triggerstore.Trigger
	for rows.Next() {
		t, err := scanTriggerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *Delegate) SelectWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error) {
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot), 2)
	where := fmt.Sprintf("t.%s = $1", delegate.ColState)
	if notIn != "" {
		where += " AND " + notIn
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", joinJobDetails(), where)
	args := append([]any{string(triggerstore.StateWaiting)}, notInArgs...)

	var count int64
	if err := d.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("select waiting trigger count: %w", err)
	}
	return count, nil
}

func (d *Delegate) SelectBlockedTriggerCount(ctx context.Context, resolver delegate.JobTypeResolver) (int64, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN ($1, $2)",
		delegate.ColJobGroup, delegate.ColJobName, delegate.TableTriggers, delegate.ColState)
	rows, err := d.q.QueryContext(ctx, query, string(triggerstore.StateBlocked), string(triggerstore.StatePausedBlocked))
	if err != nil {
		return 0, fmt.Errorf("select blocked trigger count: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var group, name string
		if err := rows.Scan(&group, &name); err != nil {
			return 0, err
		}
		if _, err := resolver.ResolveJobType(ctx, group, name); err != nil {
			continue
		}
		count++
	}
	return count, rows.Err()
}

func (d *Delegate) SelectTotalWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error) {
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot), 3)
	where := fmt.Sprintf("t.%s IN ($1, $2)", delegate.ColState)
	if notIn != "" {
		where += " AND " + notIn
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", joinJobDetails(), where)
	args := append([]any{string(triggerstore.StateWaiting), string(triggerstore.StateBlocked)}, notInArgs...)

	var count int64
	if err := d.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("select total waiting trigger count: %w", err)
	}
	return count, nil
}

func (d *Delegate) SelectJobTypeCounts(ctx context.Context, snapshot delegate.FilterSnapshot) (map[string]int64, error) {
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot), 2)
	where := fmt.Sprintf("t.%s = $1", delegate.ColState)
	if notIn != "" {
		where += " AND " + notIn
	}
	query := fmt.Sprintf("SELECT jd.%s, COUNT(*) FROM %s WHERE %s GROUP BY jd.%s",
		delegate.ColJobType, joinJobDetails(), where, delegate.ColJobType)
	args := append([]any{string(triggerstore.StateWaiting)}, notInArgs...)

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select job type counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var jobType string
		var count int64
		if err := rows.Scan(&jobType, &count); err != nil {
			return nil, err
		}
		out[jobType] = count
	}
	return out, rows.Err()
}

func (d *Delegate) SelectJobs(ctx context.Context, maxCount, offset int) ([]*triggerstore.Trigger, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s != $1
		ORDER BY %s ASC
		LIMIT %d OFFSET %d`,
		triggerColsSQL(), delegate.TableTriggers, delegate.ColState,
		delegate.ColNextFireTime, maxCount, offset)

	rows, err := d.q.QueryContext(ctx, query, string(triggerstore.StateExecuting))
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()

	var out []*triggerstore.Trigger
	for rows.Next() {
		t, err := scanTriggerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *Delegate) GetTrigger(ctx context.Context, key triggerstore.TriggerKey) (*triggerstore.Trigger, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 AND %s = $2",
		triggerColsSQL(), delegate.TableTriggers, delegate.ColTriggerGroup, delegate.ColTriggerName)
	row := d.q.QueryRowContext(ctx, query, key.Group, key.Name)
	t, err := scanTriggerRow(row)
	if err == sql.ErrNoRows {
		return nil, triggerstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger: %w", err)
	}
	return t, nil
}

func (d *Delegate) GetJobDetail(ctx context.Context, key triggerstore.JobKey) (*triggerstore.JobDetail, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, durable, requests_recovery FROM %s WHERE %s = $1 AND %s = $2",
		delegate.ColJobGroup, delegate.ColJobName, delegate.ColJobType, delegate.TableJobDetails, delegate.ColJobGroup, delegate.ColJobName)
	var group, name, jobType string
	var durable, requestsRecovery bool
	err := d.q.QueryRowContext(ctx, query, key.Group, key.Name).Scan(&group, &name, &jobType, &durable, &requestsRecovery)
	if err == sql.ErrNoRows {
		return nil, triggerstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job detail: %w", err)
	}
	return &triggerstore.JobDetail{
		Key:              triggerstore.JobKey{Group: group, Name: name},
		JobType:          jobType,
		Durable:          durable,
		RequestsRecovery: requestsRecovery,
	}, nil
}

func (d *Delegate) CalendarExists(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE calendar_name = $1", delegate.TableCalendars)
	var one int
	err := d.q.QueryRowContext(ctx, query, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("calendar exists: %w", err)
	}
	return true, nil
}

func (d *Delegate) AcquireTrigger(ctx context.Context, key triggerstore.TriggerKey, expectedNextFireTime time.Time, fireInstanceID string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = $2
		WHERE %s = $3 AND %s = $4 AND %s = $5 AND %s = $6`,
		delegate.TableTriggers, delegate.ColState, delegate.ColFireInstance,
		delegate.ColTriggerGroup, delegate.ColTriggerName, delegate.ColState, delegate.ColNextFireTime)
	res, err := d.q.ExecContext(ctx, query,
		string(triggerstore.StateAcquired), fireInstanceID,
		key.Group, key.Name, string(triggerstore.StateWaiting), expectedNextFireTime)
	if err != nil {
		return false, fmt.Errorf("acquire trigger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire trigger rows affected: %w", err)
	}
	return n == 1, nil
}

func (d *Delegate) InsertFiredTrigger(ctx context.Context, ft *triggerstore.FiredTrigger) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (fire_instance_id, scheduler_id, state, %s, %s, %s, %s, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		delegate.TableFiredTrigger, delegate.ColTriggerGroup, delegate.ColTriggerName,
		delegate.ColJobGroup, delegate.ColJobName)
	_, err := d.q.ExecContext(ctx, query,
		ft.FireInstanceID, ft.SchedulerID, string(ft.State),
		ft.TriggerKey.Group, ft.TriggerKey.Name, ft.JobKey.Group, ft.JobKey.Name, ft.StartTime)
	if err != nil {
		return fmt.Errorf("insert fired trigger: %w", err)
	}
	return nil
}

func (d *Delegate) UpdateFiredTriggerState(ctx context.Context, fireInstanceID string, state triggerstore.TriggerState) error {
	query := fmt.Sprintf("UPDATE %s SET state = $1 WHERE fire_instance_id = $2", delegate.TableFiredTrigger)
	if _, err := d.q.ExecContext(ctx, query, string(state), fireInstanceID); err != nil {
		return fmt.Errorf("update fired trigger state: %w", err)
	}
	return nil
}

func (d *Delegate) DeleteFiredTrigger(ctx context.Context, fireInstanceID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE fire_instance_id = $1", delegate.TableFiredTrigger)
	if _, err := d.q.ExecContext(ctx, query, fireInstanceID); err != nil {
		return fmt.Errorf("delete fired trigger: %w", err)
	}
	return nil
}

func (d *Delegate) SelectExecutingFiredTriggers(ctx context.Context, schedulerID string) ([]*triggerstore.FiredTrigger, error) {
	query := fmt.Sprintf(`
		SELECT fire_instance_id, scheduler_id, state, %s, %s, %s, %s, start_time
		FROM %s WHERE scheduler_id = $1 AND state = $2`,
		delegate.ColTriggerGroup, delegate.ColTriggerName, delegate.ColJobGroup, delegate.ColJobName,
		delegate.TableFiredTrigger)
	rows, err := d.q.QueryContext(ctx, query, schedulerID, string(triggerstore.StateExecuting))
	if err != nil {
		return nil, fmt.Errorf("select executing fired triggers: %w", err)
	}
	defer rows.Close()

	var out []*triggerstore.FiredTrigger
	for rows.Next() {
		var ft triggerstore.FiredTrigger
		var state string
		if err := rows.Scan(&ft.FireInstanceID, &ft.SchedulerID, &state,
			&ft.TriggerKey.Group, &ft.TriggerKey.Name, &ft.JobKey.Group, &ft.JobKey.Name, &ft.StartTime); err != nil {
			return nil, err
		}
		st, ok := triggerstore.ParseTriggerState(state)
		if !ok {
			return nil, fmt.Errorf("unrecognized fired trigger state %q", state)
		}
		ft.State = st
		out = append(out, &ft)
	}
	return out, rows.Err()
}

func (d *Delegate) SetTriggerState(ctx context.Context, key triggerstore.TriggerKey, state triggerstore.TriggerState) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2 AND %s = $3",
		delegate.TableTriggers, delegate.ColState, delegate.ColTriggerGroup, delegate.ColTriggerName)
	if _, err := d.q.ExecContext(ctx, query, string(state), key.Group, key.Name); err != nil {
		return fmt.Errorf("set trigger state: %w", err)
	}
	return nil
}

func (d *Delegate) SetTriggerError(ctx context.Context, key triggerstore.TriggerKey) error {
	return d.SetTriggerState(ctx, key, triggerstore.StateError)
}

// siblingCase renders the CASE expression mapping every pre-sweep state to
// its blocked counterpart: WAITING->BLOCKED, ACQUIRED->BLOCKED,
// PAUSED->PAUSED_BLOCKED. Any other state passes through unchanged.
func siblingBlockedCase() string {
	return fmt.Sprintf(`CASE %s
		WHEN '%s' THEN '%s'
		WHEN '%s' THEN '%s'
		WHEN '%s' THEN '%s'
		ELSE %s END`,
		delegate.ColState,
		triggerstore.StateWaiting, triggerstore.StateBlocked,
		triggerstore.StateAcquired, triggerstore.StateBlocked,
		triggerstore.StatePaused, triggerstore.StatePausedBlocked,
		delegate.ColState)
}

func siblingWaitingCase() string {
	return fmt.Sprintf(`CASE %s
		WHEN '%s' THEN '%s'
		WHEN '%s' THEN '%s'
		ELSE %s END`,
		delegate.ColState,
		triggerstore.StateBlocked, triggerstore.StateWaiting,
		triggerstore.StatePausedBlocked, triggerstore.StatePaused,
		delegate.ColState)
}

func (d *Delegate) SweepToBlocked(ctx context.Context, jobType string, members []string, except triggerstore.TriggerKey) error {
	types := append([]string{jobType}, members...)
	placeholders := make([]string, len(types))
	args := make([]any, 0, len(types)+2)
	for i, t := range types {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, t)
	}
	exceptGroupArg := fmt.Sprintf("$%d", len(types)+1)
	exceptNameArg := fmt.Sprintf("$%d", len(types)+2)
	args = append(args, except.Group, except.Name)

	query := fmt.Sprintf(`
		UPDATE %s SET %s = %s
		WHERE (%s, %s) IN (
		    SELECT %s, %s FROM %s WHERE %s IN (%s)
		  )
		  AND NOT (%s = %s AND %s = %s)
		  AND %s IN ('%s', '%s', '%s')`,
		delegate.TableTriggers, delegate.ColState, siblingBlockedCase(),
		delegate.ColJobGroup, delegate.ColJobName,
		delegate.ColJobGroup, delegate.ColJobName, delegate.TableJobDetails, delegate.ColJobType, strings.Join(placeholders, ", "),
		delegate.ColTriggerGroup, exceptGroupArg, delegate.ColTriggerName, exceptNameArg,
		delegate.ColState, triggerstore.StateWaiting, triggerstore.StateAcquired, triggerstore.StatePaused)

	if _, err := d.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sweep to blocked: %w", err)
	}
	return nil
}

func (d *Delegate) SweepToWaiting(ctx context.Context, jobType string, members []string) (int64, error) {
	types := append([]string{jobType}, members...)
	placeholders := make([]string, len(types))
	args := make([]any, len(types))
	for i, t := range types {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = t
	}

	query := fmt.Sprintf(`
		UPDATE %s SET %s = %s
		WHERE (%s, %s) IN (
		    SELECT %s, %s FROM %s WHERE %s IN (%s)
		  )
		  AND %s IN ('%s', '%s')`,
		delegate.TableTriggers, delegate.ColState, siblingWaitingCase(),
		delegate.ColJobGroup, delegate.ColJobName,
		delegate.ColJobGroup, delegate.ColJobName, delegate.TableJobDetails, delegate.ColJobType, strings.Join(placeholders, ", "),
		delegate.ColState, triggerstore.StateBlocked, triggerstore.StatePausedBlocked)

	res, err := d.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep to waiting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep to waiting rows affected: %w", err)
	}
	return n, nil
}

func (d *Delegate) WithTx(ctx context.Context, fn func(triggerstore.Delegate) error) error {
	sqlDB, ok := d.q.(*sql.DB)
	if !ok {
		return fmt.Errorf("withtx: delegate is already transaction-scoped")
	}
	dbTx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	scoped := &Delegate{q: dbTx}
	if err := fn(scoped); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *Delegate) CreateSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			job_type TEXT NOT NULL, durable BOOLEAN NOT NULL DEFAULT FALSE,
			requests_recovery BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (%s, %s)
		)`, delegate.TableJobDetails, delegate.ColJobGroup, delegate.ColJobName,
			delegate.ColJobGroup, delegate.ColJobName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			calendar_name TEXT PRIMARY KEY
		)`, delegate.TableCalendars),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			%s TIMESTAMPTZ NOT NULL, %s TIMESTAMPTZ,
			%s TEXT NOT NULL, %s TEXT, %s TEXT,
			PRIMARY KEY (%s, %s),
			FOREIGN KEY (%s, %s) REFERENCES %s(%s, %s)
		)`, delegate.TableTriggers,
			delegate.ColTriggerGroup, delegate.ColTriggerName,
			delegate.ColJobGroup, delegate.ColJobName,
			delegate.ColNextFireTime, delegate.ColPrevFireTime,
			delegate.ColState, delegate.ColFireInstance, delegate.ColCalendarName,
			delegate.ColTriggerGroup, delegate.ColTriggerName,
			delegate.ColJobGroup, delegate.ColJobName, delegate.TableJobDetails,
			delegate.ColJobGroup, delegate.ColJobName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triggers_state_next_fire ON %s (%s, %s)`,
			delegate.TableTriggers, delegate.ColState, delegate.ColNextFireTime),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triggers_job_name ON %s (%s)`,
			delegate.TableTriggers, delegate.ColJobName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			fire_instance_id TEXT PRIMARY KEY, scheduler_id TEXT NOT NULL,
			state TEXT NOT NULL,
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL
		)`, delegate.TableFiredTrigger,
			delegate.ColTriggerGroup, delegate.ColTriggerName, delegate.ColJobGroup, delegate.ColJobName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_fired_scheduler_state ON %s (scheduler_id, state)`,
			delegate.TableFiredTrigger),
	}

	for _, stmt := range stmts {
		if _, err := d.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
