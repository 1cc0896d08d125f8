package models

import "time"

// TaskStatus is the lifecycle state of a task. Any value may be set by
// anyone allowed to touch the task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every task status in lifecycle order
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone}

// Valid reports whether the status is known
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is known
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task fields usable in filters
const (
	TaskFieldID          = "id"
	TaskFieldTitle       = "title"
	TaskFieldDescription = "description"
	TaskFieldProject     = "project"
	TaskFieldAssignee    = "assignee"
	TaskFieldReporter    = "reporter"
	TaskFieldStatus      = "status"
	TaskFieldPriority    = "priority"
)

// Comment is a note left on a task. Author is immutable.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a unit of work inside a project
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Project      string     `json:"project"`
	Assignee     string     `json:"assignee,omitempty"`
	Reporter     string     `json:"reporter"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	Dependencies []string   `json:"dependencies"`
	Comments     []Comment  `json:"comments"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FieldValues implements query.Document
func (t *Task) FieldValues(field string) []string {
	switch field {
	case TaskFieldID:
		return []string{t.ID}
	case TaskFieldTitle:
		return []string{t.Title}
	case TaskFieldDescription:
		return []string{t.Description}
	case TaskFieldProject:
		return []string{t.Project}
	case TaskFieldAssignee:
		if t.Assignee == "" {
			return nil
		}
		return []string{t.Assignee}
	case TaskFieldReporter:
		return []string{t.Reporter}
	case TaskFieldStatus:
		return []string{string(t.Status)}
	case TaskFieldPriority:
		return []string{string(t.Priority)}
	}
	return nil
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.Comments = append([]Comment(nil), t.Comments...)
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	return &cp
}
