package rest

import "net/http"

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Deck    *DeckHandler
	Session *SessionHandler
	User    *UserHandler
	Health  *HealthHandler
}

// NewRouter registers all routes on a fresh ServeMux. Authentication is
// enforced by the services through the context user, so the mux itself has
// no protected/public split.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)

	mux.HandleFunc("GET /api/me", h.User.Me)
	mux.HandleFunc("PATCH /api/me", h.User.UpdateMe)
	mux.HandleFunc("GET /api/me/stats", h.User.Stats)

	mux.HandleFunc("GET /api/decks", h.Deck.List)
	mux.HandleFunc("POST /api/decks", h.Deck.Create)
	mux.HandleFunc("POST /api/decks/generate", h.Deck.Generate)
	mux.HandleFunc("GET /api/decks/{id}", h.Deck.Get)
	mux.HandleFunc("PATCH /api/decks/{id}", h.Deck.Update)
	mux.HandleFunc("DELETE /api/decks/{id}", h.Deck.Delete)
	mux.HandleFunc("GET /api/decks/{id}/stats", h.Deck.Stats)
	mux.HandleFunc("POST /api/decks/{id}/cards", h.Deck.AddCard)

	mux.HandleFunc("PATCH /api/cards/{id}", h.Deck.UpdateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", h.Deck.DeleteCard)
	mux.HandleFunc("GET /api/cards/{id}/history", h.Session.CardHistory)

	mux.HandleFunc("POST /api/sessions", h.Session.Start)
	mux.HandleFunc("GET /api/sessions", h.Session.List)
	mux.HandleFunc("GET /api/sessions/{id}", h.Session.Get)
	mux.HandleFunc("POST /api/sessions/{id}/answers", h.Session.SubmitAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/next", h.Session.Next)
	mux.HandleFunc("POST /api/sessions/{id}/previous", h.Session.Previous)
	mux.HandleFunc("POST /api/sessions/{id}/complete", h.Session.Complete)
	mux.HandleFunc("POST /api/sessions/{id}/abandon", h.Session.Abandon)

	mux.HandleFunc("GET /healthz", h.Health.Live)
	mux.HandleFunc("GET /readyz", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	return mux
}
