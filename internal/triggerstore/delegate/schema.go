package delegate

// Table and column names shared by every backend, so the SQL text in each
// backend package stays in sync without copy-pasted magic strings.
const (
	TableTriggers     = "triggers"
	TableFiredTrigger = "fired_triggers"
	TableJobDetails   = "job_details"
	TableCalendars    = "calendars"
)

// Column names on the triggers table.
const (
	ColTriggerGroup = "trigger_group"
	ColTriggerName  = "trigger_name"
	ColJobGroup     = "job_group"
	ColJobName      = "job_name"
	ColNextFireTime = "next_fire_time"
	ColPrevFireTime = "prev_fire_time"
	ColState        = "state"
	ColFireInstance = "fire_instance_id"
	ColCalendarName = "calendar_name"
)

// ColJobType is the job_details column carrying the resolvable job type
// string. Triggers only carry (job_group, job_name); every query that
// needs to filter or group by job type joins through job_details rather
// than matching a type value against the name column.
const ColJobType = "job_type"
