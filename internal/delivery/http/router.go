package http

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/gorilla/handlers"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth          *controllers.AuthController
	Profiles      *controllers.ProfileController
	Events        *controllers.EventController
	Participation *controllers.ParticipationController
}

// NewRouter initializes the HTTP router with all application routes. JSON
// routes are gzip-compressed; the websocket relay is mounted beside them so
// upgrades reach it unwrapped.
func NewRouter(auth domain.Authenticator, logger *slog.Logger, c Controllers, relay http.Handler) *http.ServeMux {
	authed := middleware.RequireAuth(auth, logger)
	orgOnly := func(next http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleOrganization)(next))
	}

	api := http.NewServeMux()

	// Auth
	api.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	api.HandleFunc("POST /auth/verify", c.Auth.Verify)
	api.HandleFunc("POST /auth/login", c.Auth.Login)
	api.HandleFunc("GET /auth/session", authed(c.Auth.Session))
	api.HandleFunc("PATCH /auth/user", authed(c.Auth.UpdateUser))
	api.HandleFunc("POST /auth/signout", authed(c.Auth.SignOut))

	// Profiles
	api.HandleFunc("GET /profiles/username-available", authed(c.Profiles.UsernameAvailable))
	api.HandleFunc("GET /profiles/{userID}", authed(c.Profiles.GetProfile))
	api.HandleFunc("POST /me/avatar", authed(c.Profiles.UploadAvatar))
	api.HandleFunc("DELETE /me/avatar", authed(c.Profiles.DeleteAvatar))

	// Events
	api.HandleFunc("GET /events/feed", authed(c.Events.Feed))
	api.HandleFunc("GET /events/joined", authed(c.Events.Joined))
	api.HandleFunc("GET /events/mine", authed(c.Events.Mine))
	api.HandleFunc("GET /events/upcoming", authed(c.Events.Upcoming))
	api.HandleFunc("POST /events", orgOnly(c.Events.CreateEvent))
	api.HandleFunc("GET /events/{eventID}", authed(c.Events.GetEvent))
	api.HandleFunc("PATCH /events/{eventID}", authed(c.Events.UpdateEvent))
	api.HandleFunc("DELETE /events/{eventID}", authed(c.Events.DeleteEvent))
	api.HandleFunc("POST /events/{eventID}/banner", authed(c.Events.UploadBanner))

	// Participation
	api.HandleFunc("POST /events/{eventID}/participants", authed(c.Participation.Join))
	api.HandleFunc("DELETE /events/{eventID}/participants", authed(c.Participation.Leave))
	api.HandleFunc("PUT /events/{eventID}/interest", authed(c.Participation.ToggleInterest))
	api.HandleFunc("GET /me/joined-ids", authed(c.Participation.JoinedIDs))
	api.HandleFunc("GET /me/interested-ids", authed(c.Participation.InterestedIDs))

	mux := http.NewServeMux()
	mux.Handle("/", handlers.CompressHandler(api))
	mux.HandleFunc("GET /ws/participation", authed(relay.ServeHTTP))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
