package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jastalkAPI/internal/types/catalog"
	"jastalkAPI/middleware"
	"jastalkAPI/services"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// GetPackages serves the static credit-package catalog.
func (h *CheckoutHandler) GetPackages(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, catalog.All())
}

type CreateCheckoutRequest struct {
	PackageID string `json:"packageId"`
}

func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pkg, ok := catalog.Find(req.PackageID)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown package: %s", req.PackageID))
		return
	}

	sess, err := h.checkoutService.CreateCheckoutSession(clerkID, pkg)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"sessionId":   sess.ID,
		"checkoutUrl": sess.URL,
	})
}

func (h *CheckoutHandler) PaymentSuccessPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Payment Successful</title>
		<meta name="viewport" content="width=device-width, initial-scale=1">
		<style>
			body { background-color: #0B1120; color: white; font-family: sans-serif; text-align: center; padding: 50px 20px; }
			h1 { color: #6366F1; }
			p { color: #94A3B8; }
			.card { background: #111827; padding: 30px; border-radius: 15px; max-width: 400px; margin: 0 auto; }
		</style>
	</head>
	<body>
		<div class="card">
			<h1>Payment Successful!</h1>
			<p>Your interview minutes have been added to your account.</p>
			<p>You can close this window and head back to your dashboard.</p>
		</div>
	</body>
	</html>
	`
	fmt.Fprint(w, html)
}
