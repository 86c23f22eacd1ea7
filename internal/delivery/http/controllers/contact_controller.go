package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"warsjawa/internal/delivery/http/helpers"
	"warsjawa/internal/domain"
)

// VoteRequest is the request body for POST /vote
type VoteRequest struct {
	Mac        string    `json:"mac"`
	TagID      string    `json:"tagId"`
	IsPositive bool      `json:"isPositive"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate implements Validator.
func (v VoteRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(v.Mac) == "" {
		errs = append(errs, "mac is required")
	}
	if strings.TrimSpace(v.TagID) == "" {
		errs = append(errs, "tagId is required")
	}
	return errs
}

// SellDataRequest is the request body for POST /selldata
type SellDataRequest struct {
	Mac   string `json:"mac"`
	TagID string `json:"tagId"`
}

// Validate implements Validator.
func (s SellDataRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Mac) == "" {
		errs = append(errs, "mac is required")
	}
	if strings.TrimSpace(s.TagID) == "" {
		errs = append(errs, "tagId is required")
	}
	return errs
}

// ContactController handles the badge directory, NFC tag, and voting endpoints.
type ContactController struct {
	Logger  *slog.Logger
	Service domain.ContactService
}

// NewContactController creates a ContactController with the given logger and service.
func NewContactController(logger *slog.Logger, svc domain.ContactService) *ContactController {
	return &ContactController{
		Logger:  logger,
		Service: svc,
	}
}

// ListContacts godoc
// @Summary List confirmed attendees
// @Description Returns name and email of every confirmed attendee, for the badge directory.
// @Tags contacts
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the contact list"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /contacts [get]
func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.Service.ListContacts(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, contacts)
}

// AssignTag godoc
// @Summary Assign an NFC tag to an attendee
// @Description Associates the tag with the attendee. If another attendee holds the tag it is taken over; the previous holder keeps it in their retired set. Assigning a tag the attendee already holds is a no-op.
// @Tags contacts
// @Produce json
// @Param email path string true "Attendee email"
// @Param tag path string true "NFC tag ID"
// @Success 200 {object} helpers.APIResponse "tag was already assigned to this attendee"
// @Success 201 {object} helpers.APIResponse "tag assigned"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /contact/{email}/{tag} [put]
func (c *ContactController) AssignTag(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	tagID := r.PathValue("tag")

	created, err := c.Service.AssignTag(r.Context(), email, tagID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if created {
		helpers.WriteJSONSuccess(w, http.StatusCreated, nil)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// FindByTag godoc
// @Summary Look up an attendee by NFC tag
// @Description Resolves a tag to the holder's contact card. When a requester is given, lookups count against the requester's quota.
// @Tags contacts
// @Produce json
// @Param tag path string true "NFC tag ID"
// @Param requester query string false "Identity of the scanning badge"
// @Success 200 {object} helpers.APIResponse "data contains the contact"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_lookups"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /contact/{tag} [get]
func (c *ContactController) FindByTag(w http.ResponseWriter, r *http.Request) {
	tagID := r.PathValue("tag")
	requester := r.URL.Query().Get("requester")

	contact, err := c.Service.FindByTag(r.Context(), tagID, requester)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeTooManyLookups, "lookup quota exceeded")
		case errors.Is(err, domain.ErrUserNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "no user for tag")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, contact)
}

// Vote godoc
// @Summary Record a badge vote
// @Description Stores a vote keyed by (mac, tagId). A first vote creates, a different vote overwrites, and an identical repeat changes nothing.
// @Tags contacts
// @Accept json
// @Produce json
// @Param body body VoteRequest true "Vote"
// @Success 200 {object} helpers.APIResponse "existing vote was changed"
// @Success 201 {object} helpers.APIResponse "vote recorded"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vote [post]
func (c *ContactController) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := c.Service.Vote(r.Context(), &domain.Vote{
		Mac:        req.Mac,
		TagID:      req.TagID,
		IsPositive: req.IsPositive,
		VotedAt:    req.Timestamp,
	})
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	switch outcome {
	case domain.VoteCreated:
		helpers.WriteJSONSuccess(w, http.StatusCreated, nil)
	case domain.VoteChanged:
		helpers.WriteJSONSuccess(w, http.StatusOK, nil)
	default:
		helpers.WriteNotModified(w)
	}
}

// SellData godoc
// @Summary Record a data-sharing consent
// @Description Stores a consent from the badge system, keyed by (mac, tagId).
// @Tags contacts
// @Accept json
// @Produce json
// @Param body body SellDataRequest true "Consent"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /selldata [post]
func (c *ContactController) SellData(w http.ResponseWriter, r *http.Request) {
	var req SellDataRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.SellData(r.Context(), req.Mac, req.TagID); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, nil)
}
