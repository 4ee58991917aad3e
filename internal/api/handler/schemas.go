package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/taskboard/taskboard-api/internal/core/ports"
)

type userRequest struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required"`
	// Absent keeps the current list on replace; [] clears it.
	PendingTasks []string `json:"pendingTasks"`
}

func (r userRequest) toInput() ports.UserInput {
	return ports.UserInput{Name: r.Name, Email: r.Email, PendingTasks: r.PendingTasks}
}

type taskRequest struct {
	Name         string     `json:"name"     validate:"required"`
	Description  string     `json:"description"`
	Deadline     *Timestamp `json:"deadline" validate:"required"`
	Completed    bool       `json:"completed"`
	AssignedUser string     `json:"assignedUser"`
}

func (r taskRequest) toInput() ports.TaskInput {
	in := ports.TaskInput{
		Name:         r.Name,
		Description:  r.Description,
		Completed:    r.Completed,
		AssignedUser: r.AssignedUser,
	}
	if r.Deadline != nil {
		in.Deadline = r.Deadline.Time
	}
	return in
}

// Timestamp accepts an RFC 3339 string, a calendar date (2006-01-02) or
// milliseconds since the Unix epoch.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		return fmt.Errorf("deadline %q is not a valid date", s)
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("deadline %s is not a valid date", b)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// --- Swagger-only response shapes ---

type userEnvelope struct {
	Message string   `json:"message" example:"User retrieved successfully"`
	Data    userBody `json:"data"`
}

type userBody struct {
	ID           string    `json:"_id"          example:"665f1c2e8b3f4a0012a1b2c3"`
	Name         string    `json:"name"         example:"Ann"`
	Email        string    `json:"email"        example:"ann@example.com"`
	PendingTasks []string  `json:"pendingTasks"`
	DateCreated  time.Time `json:"dateCreated"`
}

type taskEnvelope struct {
	Message string   `json:"message" example:"Task retrieved successfully"`
	Data    taskBody `json:"data"`
}

type taskBody struct {
	ID               string    `json:"_id"              example:"665f1c2e8b3f4a0012a1b2c4"`
	Name             string    `json:"name"             example:"Write report"`
	Description      string    `json:"description"`
	Deadline         time.Time `json:"deadline"`
	Completed        bool      `json:"completed"`
	AssignedUser     string    `json:"assignedUser"`
	AssignedUserName string    `json:"assignedUserName" example:"unassigned"`
	DateCreated      time.Time `json:"dateCreated"`
}

type listEnvelope struct {
	Message string `json:"message" example:"Tasks retrieved successfully"`
	Data    any    `json:"data"`
}

type errorEnvelope struct {
	Message string `json:"message" example:"Task not found"`
	Data    any    `json:"data"`
}
