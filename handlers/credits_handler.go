package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"jastalkAPI/internal/types/notification"
	"jastalkAPI/middleware"
	"jastalkAPI/services"
)

type CreditsHandler struct {
	creditService       *services.CreditService
	notificationService *services.NotificationService
}

func NewCreditsHandler(creditService *services.CreditService, notificationService *services.NotificationService) *CreditsHandler {
	return &CreditsHandler{
		creditService:       creditService,
		notificationService: notificationService,
	}
}

func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	balance, err := h.creditService.GetBalance(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

type DeductRequest struct {
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// DeductUsage is the consumption-ledger entry point for the session runtime.
// An out-of-credits outcome comes back as 200 with exhausted=true so the
// client can prompt a purchase instead of treating it as a failure.
func (h *CreditsHandler) DeductUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.creditService.DeductUsage(ctx, clerkID, req.ElapsedSeconds)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSubscription) {
			respondWithError(w, http.StatusNotFound, "No active subscription. Purchase credits to continue.")
			return
		}
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	middleware.RecordDeduction(result.MinutesDeducted)

	if result.Exhausted {
		h.notificationService.Notify(ctx, clerkID, notification.NotificationCreditsExhausted,
			"Out of interview minutes",
			"Your practice balance is used up. Grab a credit pack to keep interviewing.",
			map[string]any{"minutesRemaining": 0},
		)
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ResolveDuplicates collapses multiple active subscription rows into one.
// Maintenance endpoint; not part of the steady-state read/write path.
func (h *CreditsHandler) ResolveDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	report, err := h.creditService.ResolveDuplicates(ctx, clerkID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	if len(report.FailedIDs) > 0 {
		// Some rows could not be deactivated; report them without failing
		// the whole pass.
		respondWithJSON(w, http.StatusMultiStatus, report)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
