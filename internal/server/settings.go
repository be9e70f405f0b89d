package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ssd-technologies/lanshare/internal/quota"
)

// settingsResponse is the client-facing view of the settings record. The
// password hash is never exposed.
type settingsResponse struct {
	TotalCapacityGB     int64 `json:"totalCapacityGB"`
	SingleUploadLimitMB int64 `json:"singleUploadLimitMB"`
	UsedCapacityBytes   int64 `json:"usedCapacityBytes"`
}

// handleGetSettings handles GET /api/settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.ledger.Settings()
	if err != nil {
		log.Printf("[server] read settings: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		TotalCapacityGB:     set.TotalCapacityBytes >> 30,
		SingleUploadLimitMB: set.SingleUploadLimitBytes >> 20,
		UsedCapacityBytes:   set.UsedCapacityBytes,
	})
}

// updateSettingsRequest is the JSON body for updating quota limits.
type updateSettingsRequest struct {
	TotalCapacityGB     *int64 `json:"totalCapacityGB"`
	SingleUploadLimitMB *int64 `json:"singleUploadLimitMB"`
}

// handleUpdateSettings handles POST /api/settings — replace the capacity
// limits. The used counter and password are not client-writable.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings format")
		return
	}
	if req.TotalCapacityGB == nil || req.SingleUploadLimitMB == nil ||
		*req.TotalCapacityGB <= 0 || *req.SingleUploadLimitMB <= 0 {
		writeError(w, http.StatusBadRequest, "invalid settings format")
		return
	}

	set, err := s.ledger.UpdateLimits(*req.TotalCapacityGB<<30, *req.SingleUploadLimitMB<<20)
	if err != nil {
		log.Printf("[server] update settings: %v", err)
		writeError(w, http.StatusInternalServerError, "could not update settings")
		return
	}

	s.events.Broadcast("settings", "")
	writeJSON(w, http.StatusOK, settingsResponse{
		TotalCapacityGB:     set.TotalCapacityBytes >> 30,
		SingleUploadLimitMB: set.SingleUploadLimitBytes >> 20,
		UsedCapacityBytes:   set.UsedCapacityBytes,
	})
}

// changePasswordRequest is the JSON body for changing the admin password.
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleChangePassword handles POST /api/settings/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}

	if err := s.ledger.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, quota.ErrBadPassword) {
			writeError(w, http.StatusUnauthorized, "invalid current password")
			return
		}
		log.Printf("[server] change password: %v", err)
		writeError(w, http.StatusInternalServerError, "could not change password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
