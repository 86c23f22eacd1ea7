package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"warsjawa/internal/delivery/http/helpers"
	"warsjawa/internal/domain"
)

// RegisterMessageRequest is the request body for POST /emails/{workshopID}
type RegisterMessageRequest struct {
	Sender  string  `json:"sender"`
	Subject string  `json:"subject"`
	Text    *string `json:"text"`
	HTML    *string `json:"html"`
}

// Validate implements Validator.
func (m RegisterMessageRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(m.Subject) == "" {
		errs = append(errs, "subject is required")
	}
	if m.Text == nil && m.HTML == nil {
		errs = append(errs, "text or html body is required")
	}
	return errs
}

// MessagesResponse is the response body for GET /emails/{workshopID}
type MessagesResponse struct {
	Emails []domain.PublicEmail `json:"emails"`
}

// WorkshopController handles workshop membership and message log endpoints.
type WorkshopController struct {
	Logger  *slog.Logger
	Service domain.WorkshopService
}

// NewWorkshopController creates a WorkshopController with the given logger and service.
func NewWorkshopController(logger *slog.Logger, svc domain.WorkshopService) *WorkshopController {
	return &WorkshopController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Join a workshop
// @Description Adds a confirmed attendee to the workshop. A first-time join replays every backlog message the attendee has not yet received; re-joining is a no-op and replays nothing.
// @Tags workshops
// @Produce json
// @Param workshopID path string true "Workshop ID"
// @Param email path string true "Attendee email"
// @Success 200 {object} helpers.APIResponse "attendee was already a member"
// @Success 201 {object} helpers.APIResponse "attendee joined"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (attendee not confirmed)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /emails/{workshopID}/{email} [put]
func (c *WorkshopController) Join(w http.ResponseWriter, r *http.Request) {
	workshopID := r.PathValue("workshopID")
	email := r.PathValue("email")

	joined, err := c.Service.Join(r.Context(), workshopID, email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrWorkshopNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
		case errors.Is(err, domain.ErrUserNotConfirmed):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "user is not confirmed")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	if joined {
		helpers.WriteJSONSuccess(w, http.StatusCreated, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// Leave godoc
// @Summary Leave a workshop
// @Description Removes the attendee from the workshop recipient set. Their delivery history is kept, so a later re-join does not re-send anything they already received.
// @Tags workshops
// @Produce json
// @Param workshopID path string true "Workshop ID"
// @Param email path string true "Attendee email"
// @Success 200 {object} helpers.APIResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /emails/{workshopID}/{email} [delete]
func (c *WorkshopController) Leave(w http.ResponseWriter, r *http.Request) {
	workshopID := r.PathValue("workshopID")
	email := r.PathValue("email")

	if _, err := c.Service.Leave(r.Context(), workshopID, email); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// RegisterMessage godoc
// @Summary Post a message to a workshop
// @Description Appends a message to the workshop log and relays it to mentors and members, exactly as if it had arrived by email. An empty sender falls back to the system sender.
// @Tags workshops
// @Accept json
// @Produce json
// @Param workshopID path string true "Workshop ID"
// @Param body body RegisterMessageRequest true "Message"
// @Success 201 {object} helpers.APIResponse "data contains the stored message view"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /emails/{workshopID} [post]
func (c *WorkshopController) RegisterMessage(w http.ResponseWriter, r *http.Request) {
	workshopID := r.PathValue("workshopID")
	var req RegisterMessageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	msg, err := c.Service.RegisterMessage(r.Context(), workshopID, req.Sender, req.Subject, req.Text, req.HTML)
	if err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "workshop not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, msg.PublicView())
}

// Messages godoc
// @Summary List workshop messages
// @Description Returns the workshop message log as public views: sender, subject, plain text, and date. Raw payloads and html bodies are not exposed.
// @Tags workshops
// @Produce json
// @Param workshopID path string true "Workshop ID"
// @Success 200 {object} helpers.APIResponse "data contains the message list"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /emails/{workshopID} [get]
func (c *WorkshopController) Messages(w http.ResponseWriter, r *http.Request) {
	workshopID := r.PathValue("workshopID")
	emails, err := c.Service.Messages(r.Context(), workshopID)
	if err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "workshop not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessagesResponse{Emails: emails})
}
