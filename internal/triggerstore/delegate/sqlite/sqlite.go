// Package sqlite implements the filtered delegate against SQLite using the
// pure-Go github.com/ncruces/go-sqlite3 driver, so the trigger store can
// run embedded without cgo — useful for local development and single-node
// deployments that don't need PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/delegate"
)

// Open opens (creating if necessary) a SQLite database file at path and
// returns a ready-to-use delegate. Pass ":memory:" for an ephemeral store,
// typically in tests.
func Open(path string) (*Delegate, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver serializes writers internally; a single connection avoids
	// SQLITE_BUSY churn under the store's own triggerAccessMu lock.
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// New wraps an already-open *sql.DB (e.g. one opened and ping-verified by
// the process's lifecycle package) in a Delegate.
func New(db *sql.DB) *Delegate {
	return &Delegate{q: db}
}

// Delegate is the SQLite-backed filtered delegate.
type Delegate struct {
	q delegate.Querier
}

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
// for queries that join triggers against job_details (both tables carry
// job_group/job_name, so an unqualified select would be ambiguous).
func qualifiedTriggerColsSQL(alias string) string {
	cols := make([]string, len(triggerCols))
	for i, c := range triggerCols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// joinJobDetails renders the standard join from triggers (aliased t) to
// job_details (aliased jd) on the compound job key, the only way these
// queries can filter or group by job type.
func joinJobDetails() string {
	return fmt.Sprintf("%s t JOIN %s jd ON t.%s = jd.%s AND t.%s = jd.%s",
		delegate.TableTriggers, delegate.TableJobDetails,
		delegate.ColJobGroup, delegate.ColJobGroup, delegate.ColJobName, delegate.ColJobName)
}

// timeFormat is RFC3339Nano: SQLite has no native timestamp type, so times
// are stored as sortable text.
const timeFormat = time.RFC3339Nano

func scanTriggerRow(row interface{ Scan(dest ...any) error }) (*triggerstore.Trigger, error) {
	var (
		triggerGroup, triggerName string
		jobGroup, jobName         string
		nextFireTime              string
		prevFireTime              sql.NullString
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
	next, err := time.Parse(timeFormat, nextFireTime)
	if err != nil {
		return nil, fmt.Errorf("parse next_fire_time: %w", err)
	}
	var prev time.Time
	if prevFireTime.Valid && prevFireTime.String != "" {
		prev, err = time.Parse(timeFormat, prevFireTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse prev_fire_time: %w", err)
		}
	}
	return &triggerstore.Trigger{
		Key:            triggerstore.TriggerKey{Group: triggerGroup, Name: triggerName},
		JobKey:         triggerstore.JobKey{Group: jobGroup, Name: jobName},
		NextFireTime:   next,
		PrevFireTime:   prev,
		State:          st,
		FireInstanceID: fireInstance.String,
		CalendarName:   calendarName.String,
	}, nil
}

func sortedExcluded(snapshot delegate.FilterSnapshot) []string {
	out := make([]string, 0, len(snapshot.Excluded))
	for t := range snapshot.Excluded {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func buildNotIn(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(placeholders, ", ")), args
}

func (d *Delegate) SelectTriggersToAcquire(ctx context.Context, noLaterThan time.Time, maxCount int, snapshot delegate.FilterSnapshot) ([]*triggerstore.Trigger, error) {
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot))
	where := fmt.Sprintf("t.%s = ? AND t.%s <= ?", delegate.ColState, delegate.ColNextFireTime)
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

	args := append([]any{string(triggerstore.StateWaiting), noLaterThan.Format(timeFormat)}, notInArgs...)
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
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot))
	where := fmt.Sprintf("t.%s = ?", delegate.ColState)
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
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (?, ?)",
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
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot))
	where := fmt.Sprintf("t.%s IN (?, ?)", delegate.ColState)
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
	notIn, notInArgs := buildNotIn("jd."+delegate.ColJobType, sortedExcluded(snapshot))
	where := fmt.Sprintf("t.%s = ?", delegate.ColState)
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
		WHERE %s != ?
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
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
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
	query := fmt.Sprintf("SELECT %s, %s, %s, durable, requests_recovery FROM %s WHERE %s = ? AND %s = ?",
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
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE calendar_name = ?", delegate.TableCalendars)
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
		UPDATE %s SET %s = ?, %s = ?
		WHERE %s = ? AND %s = ? AND %s = ? AND %s = ?`,
		delegate.TableTriggers, delegate.ColState, delegate.ColFireInstance,
		delegate.ColTriggerGroup, delegate.ColTriggerName, delegate.ColState, delegate.ColNextFireTime)
	res, err := d.q.ExecContext(ctx, query,
		string(triggerstore.StateAcquired), fireInstanceID,
		key.Group, key.Name, string(triggerstore.StateWaiting), expectedNextFireTime.Format(timeFormat))
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		delegate.TableFiredTrigger, delegate.ColTriggerGroup, delegate.ColTriggerName,
		delegate.ColJobGroup, delegate.ColJobName)
	_, err := d.q.ExecContext(ctx, query,
		ft.FireInstanceID, ft.SchedulerID, string(ft.State),
		ft.TriggerKey.Group, ft.TriggerKey.Name, ft.JobKey.Group, ft.JobKey.Name, ft.StartTime.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert fired trigger: %w", err)
	}
	return nil
}

func (d *Delegate) UpdateFiredTriggerState(ctx context.Context, fireInstanceID string, state triggerstore.TriggerState) error {
	query := fmt.Sprintf("UPDATE %s SET state = ? WHERE fire_instance_id = ?", delegate.TableFiredTrigger)
	if _, err := d.q.ExecContext(ctx, query, string(state), fireInstanceID); err != nil {
		return fmt.Errorf("update fired trigger state: %w", err)
	}
	return nil
}

func (d *Delegate) DeleteFiredTrigger(ctx context.Context, fireInstanceID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE fire_instance_id = ?", delegate.TableFiredTrigger)
	if _, err := d.q.ExecContext(ctx, query, fireInstanceID); err != nil {
		return fmt.Errorf("delete fired trigger: %w", err)
	}
	return nil
}

func (d *Delegate) SelectExecutingFiredTriggers(ctx context.Context, schedulerID string) ([]*triggerstore.FiredTrigger, error) {
	query := fmt.Sprintf(`
		SELECT fire_instance_id, scheduler_id, state, %s, %s, %s, %s, start_time
		FROM %s WHERE scheduler_id = ? AND state = ?`,
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
		var state, startTime string
		if err := rows.Scan(&ft.FireInstanceID, &ft.SchedulerID, &state,
			&ft.TriggerKey.Group, &ft.TriggerKey.Name, &ft.JobKey.Group, &ft.JobKey.Name, &startTime); err != nil {
			return nil, err
		}
		st, ok := triggerstore.ParseTriggerState(state)
		if !ok {
			return nil, fmt.Errorf("unrecognized fired trigger state %q", state)
		}
		parsed, err := time.Parse(timeFormat, startTime)
		if err != nil {
			return nil, fmt.Errorf("parse start_time: %w", err)
		}
		ft.State = st
		ft.StartTime = parsed
		out = append(out, &ft)
	}
	return out, rows.Err()
}

func (d *Delegate) SetTriggerState(ctx context.Context, key triggerstore.TriggerKey, state triggerstore.TriggerState) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?",
		delegate.TableTriggers, delegate.ColState, delegate.ColTriggerGroup, delegate.ColTriggerName)
	if _, err := d.q.ExecContext(ctx, query, string(state), key.Group, key.Name); err != nil {
		return fmt.Errorf("set trigger state: %w", err)
	}
	return nil
}

func (d *Delegate) SetTriggerError(ctx context.Context, key triggerstore.TriggerKey) error {
	return d.SetTriggerState(ctx, key, triggerstore.StateError)
}

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
		placeholders[i] = "?"
		args = append(args, t)
	}
	args = append(args, except.Group, except.Name)

	query := fmt.Sprintf(`
		UPDATE %s SET %s = %s
		WHERE (%s, %s) IN (
		    SELECT %s, %s FROM %s WHERE %s IN (%s)
		  )
		  AND NOT (%s = ? AND %s = ?)
		  AND %s IN ('%s', '%s', '%s')`,
		delegate.TableTriggers, delegate.ColState, siblingBlockedCase(),
		delegate.ColJobGroup, delegate.ColJobName,
		delegate.ColJobGroup, delegate.ColJobName, delegate.TableJobDetails, delegate.ColJobType, strings.Join(placeholders, ", "),
		delegate.ColTriggerGroup, delegate.ColTriggerName,
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
		placeholders[i] = "?"
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
			job_type TEXT NOT NULL, durable INTEGER NOT NULL DEFAULT 0,
			requests_recovery INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (%s, %s)
		)`, delegate.TableJobDetails, delegate.ColJobGroup, delegate.ColJobName,
			delegate.ColJobGroup, delegate.ColJobName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			calendar_name TEXT PRIMARY KEY
		)`, delegate.TableCalendars),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			%s TEXT NOT NULL, %s TEXT NOT NULL,
			%s TEXT NOT NULL, %s TEXT,
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
			start_time TEXT NOT NULL
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
