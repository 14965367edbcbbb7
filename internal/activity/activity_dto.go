package activity

// ActivityPayload is the record shape inside the current/start responses.
type ActivityPayload struct {
	Type      string `json:"type"`
	StartTime string `json:"startTime"`
}

// CurrentActivityResponse answers GET /activities/current. The response
// shape is a contract with the presence agent; success=false without a
// transport error still counts as failure on the agent side.
type CurrentActivityResponse struct {
	Success     bool             `json:"success"`
	Activity    *ActivityPayload `json:"activity,omitempty"`
	ShouldBlock bool             `json:"shouldBlock"`
	TimeLimit   *int             `json:"timeLimit,omitempty"`
}

type StartActivityRequest struct {
	Type string `json:"type" binding:"required"`
}

type StartActivityResponse struct {
	Success   bool             `json:"success"`
	Activity  *ActivityPayload `json:"activity,omitempty"`
	TimeLimit *int             `json:"timeLimit,omitempty"`
}

type GoOnDeskResponse struct {
	Success  bool             `json:"success"`
	Activity *ActivityPayload `json:"activity,omitempty"`
}

// HistoryItem is one row of the activity-history table.
type HistoryItem struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	TypeLabel  string  `json:"type_label"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}
