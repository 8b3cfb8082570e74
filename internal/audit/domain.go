package audit

import "time"

// Action classifies an administrative mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// TargetType names the kind of record a mutation touched.
type TargetType string

const (
	TargetRole       TargetType = "role"
	TargetPermission TargetType = "permission"
	TargetUser       TargetType = "user"
)

// Entry is one record of the append-only access log. Entries are never
// updated or deleted once written; CreatedAt is the only ordering key.
// Only raw identifiers are stored — actor display names are resolved at
// query time, so a later rename changes historical display but not
// historical fact.
type Entry struct {
	ID         string
	ActorID    string
	Action     Action
	TargetType TargetType
	TargetID   string
	Details    string
	CreatedAt  time.Time
}

// DateRange selects the calendar window of a log query.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// ParseDateRange validates a raw range tag. The empty string means all.
func ParseDateRange(raw string) (DateRange, bool) {
	switch DateRange(raw) {
	case RangeAll, RangeToday, RangeWeek, RangeMonth:
		return DateRange(raw), true
	case "":
		return RangeAll, true
	}
	return RangeAll, false
}

// Filters narrows a log query. All present criteria must match.
type Filters struct {
	// Search matches case-insensitively against the resolved actor's
	// name or email, or against the entry details.
	Search string
	// ActorID, when set, must equal the entry's actor exactly.
	ActorID string
	// Range restricts entries to a calendar window in the configured
	// local time zone.
	Range DateRange
}

// Actor is the slice of a user the log needs for display: identity plus
// current name and email.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// ResolvedEntry is an Entry joined with the actor's current display
// identity for presentation and export.
type ResolvedEntry struct {
	Entry
	ActorName  string
	ActorEmail string
}
