package handlers

import (
	"net/http"

	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profiles  *services.ProfileService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, validator: services.NewValidationHelper(), logger: logger}
}

type UserResponse struct {
	Message string                `json:"message,omitempty"`
	User    *models.PublicAccount `json:"user"`
}

type TestResultResponse struct {
	Message    string             `json:"message"`
	TestResult *models.TestResult `json:"testResult"`
}

type TestResultsResponse struct {
	TestResults []models.TestResult `json:"testResults"`
}

type RecommendationResponse struct {
	Message        string                 `json:"message"`
	Recommendation *models.Recommendation `json:"recommendation"`
}

type RecommendationsResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

type PreferencesResponse struct {
	Message     string              `json:"message"`
	Preferences *models.Preferences `json:"preferences"`
}

// GetProfile returns the signed-in account
// @Summary Get profile
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /user/profile [get]
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	user, err := h.profiles.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, UserResponse{User: user})
}

// UpdateProfile changes name, phone and profile fields
// @Summary Update profile
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /user/profile [put]
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.UpdateProfileRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, UserResponse{Message: "Profile updated successfully", User: user})
}

// SaveTestResult stores a test result
// @Summary Save test result
// @Description A result for an existing testId replaces the earlier one
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TestResultRequest true "Test result"
// @Success 200 {object} TestResultResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /user/test-result [post]
func (h *ProfileHandler) SaveTestResult(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.TestResultRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.profiles.SaveTestResult(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, TestResultResponse{Message: "Test result saved successfully", TestResult: result})
}

// ListTestResults returns all stored test results
// @Summary List test results
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TestResultsResponse
// @Router /user/test-results [get]
func (h *ProfileHandler) ListTestResults(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	results, err := h.profiles.ListTestResults(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if results == nil {
		results = []models.TestResult{}
	}
	services.SendJSON(w, http.StatusOK, TestResultsResponse{TestResults: results})
}

// SaveRecommendation appends a recommendation
// @Summary Save recommendation
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RecommendationRequest true "Recommendation"
// @Success 200 {object} RecommendationResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /user/recommendation [post]
func (h *ProfileHandler) SaveRecommendation(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.RecommendationRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.profiles.SaveRecommendation(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, RecommendationResponse{Message: "Recommendation saved successfully", Recommendation: rec})
}

// ListRecommendations returns all recommendations
// @Summary List recommendations
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RecommendationsResponse
// @Router /user/recommendations [get]
func (h *ProfileHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	recs, err := h.profiles.ListRecommendations(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	services.SendJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs})
}

// UpdateRecommendation toggles the saved flag
// @Summary Save or unsave a recommendation
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Recommendation id"
// @Param request body services.RecommendationUpdateRequest true "Saved flag"
// @Success 200 {object} RecommendationResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /user/recommendation/{id} [put]
func (h *ProfileHandler) UpdateRecommendation(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.RecommendationUpdateRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.profiles.SetRecommendationSaved(r.Context(), claims.UserID, chi.URLParam(r, "id"), *req.Saved)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, RecommendationResponse{Message: "Recommendation updated successfully", Recommendation: rec})
}

// UpdatePreferences merges notification and privacy settings
// @Summary Update preferences
// @Description Only the flags present in the body change
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.PreferencesRequest true "Preference flags"
// @Success 200 {object} PreferencesResponse
// @Router /user/preferences [put]
func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.PreferencesRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	prefs, err := h.profiles.UpdatePreferences(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, PreferencesResponse{Message: "Preferences updated successfully", Preferences: prefs})
}

// DeleteAccount removes the account after a password check
// @Summary Delete account
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.DeleteAccountRequest true "Current password"
// @Success 200 {object} services.MessageResponse
// @Failure 401 {object} services.ErrorResponse "Invalid password"
// @Router /user/account [delete]
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.DeleteAccountRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.profiles.DeleteAccount(r.Context(), claims.UserID, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, services.MessageResponse{Message: "Account deleted successfully"})
}
