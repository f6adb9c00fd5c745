package interview

import "time"

type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type TurnRole string

const (
	TurnAgent     TurnRole = "agent"
	TurnCandidate TurnRole = "candidate"
)

// Interview is one mock-interview session configuration plus its lifecycle
// state. Billing is driven by the elapsed seconds reported on completion.
type Interview struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"userId" db:"user_id"`
	JobRole        string     `json:"jobRole" db:"job_role"`
	Seniority      string     `json:"seniority" db:"seniority"`
	Persona        string     `json:"persona" db:"persona"`
	QuestionCount  int        `json:"questionCount" db:"question_count"`
	Status         Status     `json:"status" db:"status"`
	ElapsedSeconds int        `json:"elapsedSeconds" db:"elapsed_seconds"`
	StartedAt      *time.Time `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

type Question struct {
	ID          string `json:"id" db:"id"`
	InterviewID string `json:"interviewId" db:"interview_id"`
	Position    int    `json:"position" db:"position"`
	Text        string `json:"text" db:"text"`
}

// Turn is one utterance in the interview transcript.
type Turn struct {
	ID          string    `json:"id" db:"id"`
	InterviewID string    `json:"interviewId" db:"interview_id"`
	Role        TurnRole  `json:"role" db:"role"`
	Content     string    `json:"content" db:"content"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type CreateInterviewRequest struct {
	JobRole       string `json:"jobRole"`
	Seniority     string `json:"seniority"`
	Persona       string `json:"persona"`
	QuestionCount int    `json:"questionCount"`
}

type AddTurnRequest struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type CompleteInterviewRequest struct {
	ElapsedSeconds int `json:"elapsedSeconds"`
}
