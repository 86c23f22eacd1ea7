package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"warsjawa/internal/delivery/http/helpers"
	"warsjawa/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Reminder mailouts are capped so a typo in count cannot blast every attendee.
const maxReminderCount = 100

// RegisterRequest is the request body for POST /users
type RegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements Validator.
func (r RegisterRequest) Validate() []string {
	var errs []string
	email := strings.TrimSpace(strings.ToLower(r.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// ConfirmRequest is the request body for PUT /users
type ConfirmRequest struct {
	Email string `json:"email"`
	Key   string `json:"key"`
}

// Validate implements Validator.
func (c ConfirmRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	if c.Key == "" {
		errs = append(errs, "key is required")
	}
	return errs
}

// ConfirmationLandingResponse is the response body for GET /confirmation/{email}
type ConfirmationLandingResponse struct {
	User      *domain.User       `json:"user"`
	Workshops []*domain.Workshop `json:"workshops"`
}

// RemindersResponse is the response body for POST /confirmation/send
type RemindersResponse struct {
	Sent int `json:"sent"`
}

// UserController handles registration and confirmation endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register an attendee
// @Description Create a registration and email a confirmation key. Registering again while unconfirmed rotates the key and re-sends the email. A confirmed address cannot re-register; it gets a denial email and 304.
// @Tags users
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} helpers.APIResponse "data contains the registered user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users [post]
func (c *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, _, err := c.Service.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			helpers.WriteNotModified(w)
			return
		}
		if errors.Is(err, domain.ErrInvalidEmail) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Confirm godoc
// @Summary Confirm a registration
// @Description Confirm with the key from the registration email. A wrong key is indistinguishable from an unknown address. Confirming twice gets a denial email and 304.
// @Tags users
// @Accept json
// @Produce json
// @Param body body ConfirmRequest true "Confirmation data"
// @Success 201 {object} helpers.APIResponse "data contains the confirmed user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users [put]
func (c *UserController) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.Confirm(r.Context(), req.Email, req.Key)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyConfirmed) {
			helpers.WriteNotModified(w)
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// ConfirmationLanding godoc
// @Summary Confirmation landing page data
// @Description Marks the attendee as seen at the registration desk and returns their workshops.
// @Tags users
// @Produce json
// @Param email path string true "Attendee email"
// @Success 200 {object} helpers.APIResponse "data contains the user and their workshops"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /confirmation/{email} [get]
func (c *UserController) ConfirmationLanding(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	user, workshops, err := c.Service.ConfirmationLanding(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ConfirmationLandingResponse{User: user, Workshops: workshops})
}

// SendReminders godoc
// @Summary Re-send confirmation emails
// @Description Re-sends the confirmation email to up to count confirmed attendees whose address contains query.
// @Tags users
// @Produce json
// @Param query query string false "Substring to match against addresses"
// @Param count query int true "Maximum number of emails to send"
// @Success 200 {object} helpers.APIResponse "data contains the number of emails sent"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /confirmation/send [post]
func (c *UserController) SendReminders(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 1 {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "count must be a positive integer")
		return
	}
	if count > maxReminderCount {
		count = maxReminderCount
	}
	sent, err := c.Service.SendConfirmationReminders(r.Context(), r.URL.Query().Get("query"), count)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RemindersResponse{Sent: sent})
}
