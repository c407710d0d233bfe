package handlers

import (
	"net/http"

	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/services"
	"go.uber.org/zap"
)

type LinkHandler struct {
	links     *services.LinkService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewLinkHandler(links *services.LinkService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{links: links, validator: services.NewValidationHelper(), logger: logger}
}

type LinkedUsersResponse struct {
	LinkedUsers []models.LinkedAccount `json:"linkedUsers"`
}

type SearchUsersResponse struct {
	Users []models.LinkedAccount `json:"users"`
}

// LinkUsers links a student and a parent
// @Summary Link a student and a parent
// @Description The caller must be one of the two accounts. Linking twice is harmless.
// @Tags linking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.LinkRequest true "Student and parent emails"
// @Success 200 {object} services.LinkResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /auth/link-users [post]
func (h *LinkHandler) LinkUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	var req services.LinkRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.links.Link(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, resp)
}

// LinkedUsers lists linked accounts
// @Summary List linked accounts
// @Tags linking
// @Produce json
// @Security BearerAuth
// @Success 200 {object} LinkedUsersResponse
// @Router /auth/linked-users [get]
func (h *LinkHandler) LinkedUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	linked, err := h.links.ListLinked(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, LinkedUsersResponse{LinkedUsers: linked})
}

// SearchUsers finds accounts by name and surname
// @Summary Search accounts to link
// @Tags linking
// @Produce json
// @Security BearerAuth
// @Param name query string true "Name, partial and case-insensitive"
// @Param surname query string true "Surname, partial and case-insensitive"
// @Param role query string false "student or parent"
// @Success 200 {object} SearchUsersResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/search-users [get]
func (h *LinkHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	users, err := h.links.Search(r.Context(), claims.UserID, q.Get("name"), q.Get("surname"), q.Get("role"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services.SendJSON(w, http.StatusOK, SearchUsersResponse{Users: users})
}
