package handlers

import (
	"net/http"
	"strconv"

	"verify-backend/internal/repositories"
	"verify-backend/pkg/utils"
)

// ActivityLogHandler serves the audit trail to admin clients
type ActivityLogHandler struct {
	Repo          *repositories.ActivityLogRepository
	ChallengeRepo *repositories.ChallengeRepository
}

func NewActivityLogHandler(repo *repositories.ActivityLogRepository, challengeRepo *repositories.ChallengeRepository) *ActivityLogHandler {
	return &ActivityLogHandler{
		Repo:          repo,
		ChallengeRepo: challengeRepo,
	}
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

// List returns recent activity, optionally filtered by email
func (h *ActivityLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, 100)

	var (
		logs interface{}
		err  error
	)
	if email := r.URL.Query().Get("email"); email != "" {
		logs, err = h.Repo.ListByEmail(r.Context(), email, limit)
	} else {
		logs, err = h.Repo.ListRecent(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, "Failed to fetch activity logs", http.StatusInternalServerError)
		return
	}

	utils.JSON(w, http.StatusOK, logs)
}

// VerificationLogs returns recent OTP challenges with their outcomes
func (h *ActivityLogHandler) VerificationLogs(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, 100)

	logs, err := h.ChallengeRepo.GetVerificationLogs(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to fetch verification logs", http.StatusInternalServerError)
		return
	}

	utils.JSON(w, http.StatusOK, logs)
}
