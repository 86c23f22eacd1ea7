package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"warsjawa/internal/delivery/http/controllers"
	"warsjawa/internal/delivery/http/middleware"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	userController *controllers.UserController,
	workshopController *controllers.WorkshopController,
	inboundController *controllers.InboundController,
	contactController *controllers.ContactController,
) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.Instrument(pattern, h))
	}

	// Registration
	handle("POST /users", userController.Register)
	handle("PUT /users", userController.Confirm)
	handle("GET /confirmation/{email}", userController.ConfirmationLanding)
	handle("POST /confirmation/send", userController.SendReminders)

	// Workshop relay
	handle("PUT /emails/{workshopID}/{email}", workshopController.Join)
	handle("DELETE /emails/{workshopID}/{email}", workshopController.Leave)
	handle("POST /emails/{workshopID}", workshopController.RegisterMessage)
	handle("GET /emails/{workshopID}", workshopController.Messages)

	// Inbound webhook
	handle("POST /mailgun", inboundController.Receive)

	// Badges
	handle("GET /contacts", contactController.ListContacts)
	handle("PUT /contact/{email}/{tag}", contactController.AssignTag)
	handle("GET /contact/{tag}", contactController.FindByTag)
	handle("POST /vote", contactController.Vote)
	handle("POST /selldata", contactController.SellData)

	// Operational
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
