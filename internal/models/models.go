package models

import "time"

// Employee is a directory entry supplied by the identity provider.
type Employee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
}

// Priority is the urgency bucket of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities enumerates the priorities accepted on task writes.
var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

// Comment is an append-only audit entry on a task.
type Comment struct {
	Text      string    `json:"text"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEntry is one timer segment on a task. A nil EndTime marks the
// segment as still running; at most one per task may be open.
type TimelineEntry struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// DescriptionBlock is one structured block of a task description.
type DescriptionBlock struct {
	StoreLink       string   `json:"store_link,omitempty"`
	ReferenceLink   string   `json:"reference_link,omitempty"`
	FigmaLink       string   `json:"figma_link,omitempty"`
	StoreLocked     bool     `json:"store_locked,omitempty"`
	ReferenceLocked bool     `json:"reference_locked,omitempty"`
	FigmaLocked     bool     `json:"figma_locked,omitempty"`
	Notes           []string `json:"notes,omitempty"`
	Files           []string `json:"files,omitempty"`
}

// Task represents a single card on the board.
type Task struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"project_id"`
	Title       string             `json:"title"`
	Description []DescriptionBlock `json:"description,omitempty"`
	Priority    Priority           `json:"priority"`
	Status      string             `json:"status"`
	DueDate     *time.Time         `json:"due_date"`
	Assignees   []Employee         `json:"assigned_employees"`
	Comments    []Comment          `json:"comments"`
	Timeline    []TimelineEntry    `json:"timeline"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Project groups tasks into named status lanes. Every status carried by a
// task is a key of StatusTask; lane names are lowercased on create/rename.
type Project struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedBy  string            `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	Lanes      []string          `json:"lanes"`
	StatusTask map[string][]Task `json:"status_task"`
}

// WorkSession is one start/stop pair inside a work day. A nil EndTime is
// only legal while the day is still the current day.
type WorkSession struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// WorkDay holds a user's tracked sessions for one calendar date.
type WorkDay struct {
	ID       string        `json:"id"`
	UserID   string        `json:"user_id"`
	WorkDate string        `json:"work_date"` // YYYY-MM-DD
	Sessions []WorkSession `json:"sessions"`
}

// PermissionRecord stores the sparse grants for one subject, keyed by the
// granting admin, the subject and the subject's role at grant time.
type PermissionRecord struct {
	ID         string          `json:"id"`
	AdminBy    string          `json:"admin_by"`
	UserID     string          `json:"user_id"`
	Role       string          `json:"role"`
	Management map[string]bool `json:"management"`
	Employees  map[string]bool `json:"employees"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Holiday is a company holiday or leave-policy date.
type Holiday struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
	Paid bool      `json:"paid"`
}

// Transaction is one row of the contract/transaction ledger.
type Transaction struct {
	ID       string    `json:"id"`
	Party    string    `json:"party"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
	Kind     string    `json:"kind"` // income, expense, contract
	Date     time.Time `json:"date"`
	Note     string    `json:"note,omitempty"`
}

// CategoryItem is one entry of a category catalog.
type CategoryItem struct {
	StoreName     string   `json:"store_name"`
	StoreLink     string   `json:"store_link,omitempty"`
	FigmaLink     string   `json:"figma_link,omitempty"`
	TestingMarks  []string `json:"testing_mark_list,omitempty"`
	Status        string   `json:"status,omitempty"`
	AssignProject string   `json:"assign_project,omitempty"`
}

// Category is an ordered catalog of items. Order is unique per tenant but
// not required to be contiguous; reordering rewrites the whole order set.
type Category struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Order int64          `json:"order"`
	Items []CategoryItem `json:"items"`
}
