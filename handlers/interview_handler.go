package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jastalkAPI/internal/types/interview"
	"jastalkAPI/middleware"
	"jastalkAPI/services"

	"github.com/gorilla/mux"
)

type InterviewHandler struct {
	interviewService *services.InterviewService
}

func NewInterviewHandler(interviewService *services.InterviewService) *InterviewHandler {
	return &InterviewHandler{
		interviewService: interviewService,
	}
}

func (h *InterviewHandler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req interview.CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	iv, err := h.interviewService.CreateInterview(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, iv)
}

func (h *InterviewHandler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	interviews, err := h.interviewService.ListInterviews(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, interviews)
}

// StartInterview gates on a positive balance and generates the question set,
// so it gets the long LLM timeout.
func (h *InterviewHandler) StartInterview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	interviewID := mux.Vars(r)["interviewID"]

	iv, questions, err := h.interviewService.StartInterview(ctx, clerkID, interviewID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"interview": iv,
		"questions": questions,
	})
}

func (h *InterviewHandler) AddTurn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	interviewID := mux.Vars(r)["interviewID"]

	var req interview.AddTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := h.interviewService.AddTurn(ctx, clerkID, interviewID, &req)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, turn)
}

func (h *InterviewHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	interviewID := mux.Vars(r)["interviewID"]

	turns, err := h.interviewService.GetTranscript(ctx, clerkID, interviewID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, turns)
}

func (h *InterviewHandler) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	interviewID := mux.Vars(r)["interviewID"]

	var req interview.CompleteInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	iv, deduction, err := h.interviewService.CompleteInterview(ctx, clerkID, interviewID, req.ElapsedSeconds)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	middleware.RecordDeduction(deduction.MinutesDeducted)

	respondWithJSON(w, http.StatusOK, map[string]any{
		"interview":    iv,
		"deduction":    deduction,
		"outOfCredits": deduction.Exhausted,
	})
}
