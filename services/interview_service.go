package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jastalkAPI/internal/types/interview"
	"jastalkAPI/internal/types/subscription"
	"jastalkAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrInterviewState    = errors.New("interview is not in the required state")
)

type InterviewService struct {
	db            *pgxpool.Pool
	creditService *CreditService
	llm           *openai.Client
	llmModel      string
}

func NewInterviewService(db *pgxpool.Pool, creditService *CreditService, llm *openai.Client) *InterviewService {
	return &InterviewService{
		db:            db,
		creditService: creditService,
		llm:           llm,
		llmModel:      openai.GPT4o,
	}
}

func (s *InterviewService) CreateInterview(ctx context.Context, userID string, req *interview.CreateInterviewRequest) (*interview.Interview, error) {
	if req.JobRole == "" {
		return nil, fmt.Errorf("job role is required")
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 5
	}

	iv := &interview.Interview{
		ID:            uuid.New().String(),
		UserID:        userID,
		JobRole:       req.JobRole,
		Seniority:     req.Seniority,
		Persona:       req.Persona,
		QuestionCount: req.QuestionCount,
		Status:        interview.StatusDraft,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
	INSERT INTO interviews (id, user_id, job_role, seniority, persona, question_count, status, elapsed_seconds, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		iv.ID, iv.UserID, iv.JobRole, iv.Seniority, iv.Persona, iv.QuestionCount, iv.Status, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	return iv, nil
}

func (s *InterviewService) ListInterviews(ctx context.Context, userID string) ([]*interview.Interview, error) {
	query := `
	SELECT id, user_id, job_role, seniority, persona, question_count, status, elapsed_seconds, started_at, completed_at, created_at, updated_at
	FROM interviews
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}
	defer rows.Close()

	var interviews []*interview.Interview
	for rows.Next() {
		iv := &interview.Interview{}
		err := rows.Scan(
			&iv.ID, &iv.UserID, &iv.JobRole, &iv.Seniority, &iv.Persona, &iv.QuestionCount,
			&iv.Status, &iv.ElapsedSeconds, &iv.StartedAt, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interviews: %w", err)
	}

	return interviews, nil
}

func (s *InterviewService) getOwned(ctx context.Context, userID, interviewID string) (*interview.Interview, error) {
	query := `
	SELECT id, user_id, job_role, seniority, persona, question_count, status, elapsed_seconds, started_at, completed_at, created_at, updated_at
	FROM interviews
	WHERE id = $1 AND user_id = $2
	`

	iv := &interview.Interview{}
	err := s.db.QueryRow(ctx, query, interviewID, userID).Scan(
		&iv.ID, &iv.UserID, &iv.JobRole, &iv.Seniority, &iv.Persona, &iv.QuestionCount,
		&iv.Status, &iv.ElapsedSeconds, &iv.StartedAt, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}

	return iv, nil
}

// StartInterview moves a draft to in_progress, gated on a positive balance,
// and generates the question set.
func (s *InterviewService) StartInterview(ctx context.Context, userID, interviewID string) (*interview.Interview, []*interview.Question, error) {
	iv, err := s.getOwned(ctx, userID, interviewID)
	if err != nil {
		return nil, nil, err
	}
	if iv.Status != interview.StatusDraft {
		return nil, nil, fmt.Errorf("%w: expected draft, got %s", ErrInterviewState, iv.Status)
	}

	balance, err := s.creditService.GetBalance(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if balance.Primary == nil {
		return nil, nil, ErrNoActiveSubscription
	}
	if balance.TotalMinutesRemaining <= 0 && balance.Primary.LeftoverSeconds <= 0 {
		return nil, nil, ErrNoActiveSubscription
	}

	questions, err := s.generateQuestions(ctx, iv)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	tag, err := s.db.Exec(ctx, `
		UPDATE interviews
		SET status = 'in_progress', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'draft'
	`, iv.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, fmt.Errorf("%w: interview already started", ErrInterviewState)
	}

	iv.Status = interview.StatusInProgress
	iv.StartedAt = &now
	iv.UpdatedAt = now
	return iv, questions, nil
}

func (s *InterviewService) generateQuestions(ctx context.Context, iv *interview.Interview) ([]*interview.Question, error) {
	const maxRetries = 3

	var items []string
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.llmModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: utils.InterviewSystemPrompt(iv.Persona),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: utils.QuestionSetPrompt(iv.JobRole, iv.Seniority, iv.QuestionCount),
				},
			},
			Temperature: 0.7,
		})
		if err != nil {
			log.Printf("generateQuestions: completion attempt %d failed: %v", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			continue
		}

		items = utils.SplitNumberedList(resp.Choices[0].Message.Content)
		if len(items) > 0 {
			break
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("failed to generate interview questions")
	}
	if len(items) > iv.QuestionCount {
		items = items[:iv.QuestionCount]
	}

	questions := make([]*interview.Question, 0, len(items))
	for i, text := range items {
		q := &interview.Question{
			ID:          uuid.New().String(),
			InterviewID: iv.ID,
			Position:    i + 1,
			Text:        text,
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO interview_questions (id, interview_id, position, text)
			VALUES ($1, $2, $3, $4)
		`, q.ID, q.InterviewID, q.Position, q.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to store question: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func (s *InterviewService) AddTurn(ctx context.Context, userID, interviewID string, req *interview.AddTurnRequest) (*interview.Turn, error) {
	if req.Role != interview.TurnAgent && req.Role != interview.TurnCandidate {
		return nil, fmt.Errorf("invalid turn role: %s", req.Role)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("turn content is required")
	}

	iv, err := s.getOwned(ctx, userID, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != interview.StatusInProgress {
		return nil, fmt.Errorf("%w: interview is not in progress", ErrInterviewState)
	}

	turn := &interview.Turn{
		ID:          uuid.New().String(),
		InterviewID: iv.ID,
		Role:        req.Role,
		Content:     req.Content,
		CreatedAt:   time.Now(),
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO interview_turns (id, interview_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, turn.ID, turn.InterviewID, turn.Role, turn.Content, turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store turn: %w", err)
	}

	return turn, nil
}

func (s *InterviewService) GetTranscript(ctx context.Context, userID, interviewID string) ([]*interview.Turn, error) {
	if _, err := s.getOwned(ctx, userID, interviewID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, interview_id, role, content, created_at
		FROM interview_turns
		WHERE interview_id = $1
		ORDER BY created_at ASC
	`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var turns []*interview.Turn
	for rows.Next() {
		t := &interview.Turn{}
		if err := rows.Scan(&t.ID, &t.InterviewID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return turns, nil
}

// CompleteInterview closes the session and charges the reported elapsed time
// against the user's balance. The deduction result rides back to the caller
// so the client can hard-stop further sessions when the balance is exhausted.
func (s *InterviewService) CompleteInterview(ctx context.Context, userID, interviewID string, elapsedSeconds int) (*interview.Interview, *subscription.DeductionResult, error) {
	if elapsedSeconds < 0 {
		return nil, nil, ErrInvalidElapsed
	}

	iv, err := s.getOwned(ctx, userID, interviewID)
	if err != nil {
		return nil, nil, err
	}
	if iv.Status != interview.StatusInProgress {
		return nil, nil, fmt.Errorf("%w: interview is not in progress", ErrInterviewState)
	}

	result, err := s.creditService.DeductUsage(ctx, userID, elapsedSeconds)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	_, err = s.db.Exec(ctx, `
		UPDATE interviews
		SET status = 'completed', elapsed_seconds = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
	`, iv.ID, elapsedSeconds, now)
	if err != nil {
		// The deduction already went through; surface the session-state error
		// but log it loudly since the interview row is now out of sync.
		log.Printf("CompleteInterview: deducted %d minutes but failed to close interview %s: %v", result.MinutesDeducted, iv.ID, err)
		return nil, nil, fmt.Errorf("failed to complete interview: %w", err)
	}

	iv.Status = interview.StatusCompleted
	iv.ElapsedSeconds = elapsedSeconds
	iv.CompletedAt = &now
	iv.UpdatedAt = now
	return iv, result, nil
}
