package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"warsjawa/internal/delivery/http/helpers"
	"warsjawa/internal/delivery/http/middleware"
	"warsjawa/internal/domain"
)

// InboundController handles the inbound email webhook.
type InboundController struct {
	Logger  *slog.Logger
	Service domain.WorkshopService
}

// NewInboundController creates an InboundController with the given logger and service.
func NewInboundController(logger *slog.Logger, svc domain.WorkshopService) *InboundController {
	return &InboundController{
		Logger:  logger,
		Service: svc,
	}
}

// Receive godoc
// @Summary Inbound email webhook
// @Description Accepts a parsed inbound email from the mail provider as form fields (recipient, from, subject, body-plain, body-html). The recipient alias selects the workshop; the message is stored and relayed. A 406 tells the provider to stop retrying.
// @Tags inbound
// @Accept x-www-form-urlencoded
// @Produce json
// @Param recipient formData string true "Alias the email was sent to"
// @Param from formData string true "Original sender"
// @Param subject formData string true "Subject"
// @Success 200 {object} helpers.APIResponse
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (unroutable recipient)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /mailgun [post]
func (c *InboundController) Receive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	in := &domain.InboundEmail{
		Recipient: r.PostFormValue("recipient"),
		Sender:    r.PostFormValue("from"),
		Subject:   r.PostFormValue("subject"),
		Text:      formValue(r, "body-plain"),
		HTML:      formValue(r, "body-html"),
	}

	if err := c.Service.HandleInbound(r.Context(), in); err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedAddress), errors.Is(err, domain.ErrWorkshopNotFound):
			// The provider treats 406 as a permanent rejection and stops
			// retrying, so misaddressed mail does not queue up.
			middleware.CountInboundEmail("rejected")
			c.Logger.WarnContext(r.Context(), "inbound email rejected", "recipient", in.Recipient, "err", err)
			helpers.WriteJSONError(w, http.StatusNotAcceptable, helpers.ErrCodeNotAcceptable, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}

	middleware.CountInboundEmail("relayed")
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// formValue distinguishes an absent form field from an empty one.
func formValue(r *http.Request, key string) *string {
	vs, ok := r.PostForm[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}
