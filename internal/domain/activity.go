package domain

// ActivityType is the closed catalog of employee activities. The wire value
// is the upper-snake code; Label is what the console renders.
type ActivityType string

const (
	ActivityOnDesk            ActivityType = "ON_DESK"
	ActivityLunchBreak        ActivityType = "LUNCH_BREAK"
	ActivityTeamMeeting       ActivityType = "TEAM_MEETING"
	ActivityClientMeeting     ActivityType = "CLIENT_MEETING"
	ActivityOfficeCelebration ActivityType = "OFFICE_CELEBRATION"
	ActivityInterviewSession  ActivityType = "INTERVIEW_SESSION"
	ActivityLogout            ActivityType = "LOGOUT"
)

// Catalog lists every activity type in display order.
var Catalog = []ActivityType{
	ActivityOnDesk,
	ActivityLunchBreak,
	ActivityTeamMeeting,
	ActivityClientMeeting,
	ActivityOfficeCelebration,
	ActivityInterviewSession,
	ActivityLogout,
}

var labels = map[ActivityType]string{
	ActivityOnDesk:            "On Desk",
	ActivityLunchBreak:        "Lunch Break",
	ActivityTeamMeeting:       "Team Meeting",
	ActivityClientMeeting:     "Client Meeting",
	ActivityOfficeCelebration: "Office Celebration",
	ActivityInterviewSession:  "Interview Session",
	ActivityLogout:            "Logout",
}

// Label returns the display name for t, or the raw code if unknown.
func (t ActivityType) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is part of the catalog.
func (t ActivityType) Valid() bool {
	_, ok := labels[t]
	return ok
}

// Locks reports whether an employee in activity t has the screen blocked.
// ON_DESK is the only type that never locks.
func (t ActivityType) Locks() bool {
	return t != ActivityOnDesk
}

// DefaultTimeLimitMinutes holds the built-in budget per activity type, used
// when a company has no policy row of its own. Zero means no limit.
var DefaultTimeLimitMinutes = map[ActivityType]int{
	ActivityLunchBreak:        45,
	ActivityTeamMeeting:       60,
	ActivityClientMeeting:     90,
	ActivityOfficeCelebration: 120,
	ActivityInterviewSession:  60,
}
