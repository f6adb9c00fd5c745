package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jastalkAPI/internal/types/lead"
	"jastalkAPI/services"
)

type LeadHandler struct {
	userService *services.UserService
}

func NewLeadHandler(userService *services.UserService) *LeadHandler {
	return &LeadHandler{
		userService: userService,
	}
}

// CreateLead is public: the marketing site posts here before signup.
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req lead.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	l, err := h.userService.AddLead(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, l)
}
