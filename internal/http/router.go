package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"devmeet/internal/admission"
	"devmeet/internal/auth"
	"devmeet/internal/booking"
	"devmeet/internal/config"
	"devmeet/internal/http/handler"
	mw "devmeet/internal/http/middleware"
	"devmeet/internal/notify"
	"devmeet/internal/presence"
	"devmeet/internal/realtime"
)

// Deps collects the wired services the router exposes.
type Deps struct {
	DB            *gorm.DB
	JWT           *auth.JWT
	Bookings      *booking.Service
	Notifications *notify.Repo
	Verifier      *admission.Verifier
	Tracker       *presence.Tracker
	Hub           *realtime.Hub
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	bh := &handler.BookingHandler{Svc: d.Bookings}
	r.Route("/bookings", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Post("/", bh.Create)
		r.Get("/", bh.List)
		r.Delete("/{id}", bh.Delete)
	})

	mh := &handler.MeetingHandler{Verifier: d.Verifier, Tracker: d.Tracker, Bookings: d.Bookings}
	r.Route("/meeting", func(r chi.Router) {
		// guests verify without an account
		r.Post("/verify-pin", mh.VerifyPin)
		r.With(auth.RequireAuth(d.JWT)).Post("/event", mh.Event)
	})

	nh := &handler.NotificationHandler{Repo: d.Notifications}
	r.Route("/notifications", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Get("/", nh.List)
		r.Post("/{id}/read", nh.MarkRead)
		r.Post("/read-all", nh.MarkAllRead)
	})

	r.Get("/ws", d.Hub.ServeWS)

	return r
}
