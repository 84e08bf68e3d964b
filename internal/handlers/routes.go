package handlers

import (
	"net/http"

	sessions "github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Routes past
// the session endpoints and the public catalog require a bearer access token.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.Limiter}
	videos := VideoHandler{Videos: deps.Videos, Storage: deps.Storage}
	dashboard := DashboardHandler{Store: deps.Videos}
	users := UserHandler{Users: deps.Users, Storage: deps.Storage}
	social := SocialHandler{Subscriptions: deps.Subscriptions, Likes: deps.Likes}

	authenticated := middleware.Authenticate(deps.Codec, deps.Users)
	guard := func(h http.HandlerFunc) http.Handler { return authenticated(h) }

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/register", auth.Register)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.Handle("/api/v1/auth/logout", guard(auth.Logout))

	// GET on the collection is public; POST publishes and needs a session.
	mux.Handle("/api/v1/videos", splitByMethod(http.HandlerFunc(videos.List), guard(videos.Publish)))
	mux.Handle("/api/v1/videos/", splitByMethod(http.HandlerFunc(videos.ByID), guard(videos.ByID)))

	mux.Handle("/api/v1/dashboard/stats", guard(dashboard.Stats))
	mux.Handle("/api/v1/dashboard/videos", guard(dashboard.Videos))

	mux.Handle("/api/v1/users/me", guard(users.Me))
	mux.Handle("/api/v1/users/avatar", guard(users.Avatar))
	mux.Handle("/api/v1/users/cover", guard(users.CoverImage))

	mux.Handle("/api/v1/subscriptions/toggle", guard(social.ToggleSubscription))
	mux.Handle("/api/v1/likes/toggle", guard(social.ToggleLike))
}

// splitByMethod sends GET (and HEAD) traffic to the public handler and
// everything else through the protected one.
func splitByMethod(public, protected http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			public.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	Storage       BlobStorage
	Codec         *sessions.Codec
	Limiter       RateLimiter
}
