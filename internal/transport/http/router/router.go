package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	RequestVerification(w http.ResponseWriter, r *http.Request)

	// Moderation
	ListVerificationRequests(w http.ResponseWriter, r *http.Request)
	ReviewVerification(w http.ResponseWriter, r *http.Request)

	// Administration
	Block(w http.ResponseWriter, r *http.Request)
	Unblock(w http.ResponseWriter, r *http.Request)
	SetRole(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UsersHandler

	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler

	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	RequestIDMW Middleware
	MetricsMW   Middleware

	AuthMW  Middleware
	ModMW   Middleware
	AdminMW Middleware

	// Rate limits; nil disables the limit for that route group.
	RLRegister Middleware
	RLLogin    Middleware
	RLVerify   Middleware
	RLRefresh  Middleware
	RLUsers    Middleware
}

func New(deps Deps) (http.Handler, error) {
	switch {
	case deps.Health == nil:
		return nil, fmt.Errorf("nil Health handler")
	case deps.Auth == nil:
		return nil, fmt.Errorf("nil Auth handler")
	case deps.Users == nil:
		return nil, fmt.Errorf("nil Users handler")
	case deps.AuthMW == nil:
		return nil, fmt.Errorf("nil Auth middleware")
	case deps.ModMW == nil:
		return nil, fmt.Errorf("nil Mod middleware")
	case deps.AdminMW == nil:
		return nil, fmt.Errorf("nil Admin middleware")
	}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(compact(deps.RequestIDMW, chimw.Recoverer, deps.MetricsMW)...)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(compact(deps.RLRegister)...).Post("/register", deps.Auth.Register)
		r.With(compact(deps.RLLogin)...).Post("/login", deps.Auth.Login)
		r.With(compact(deps.RLVerify)...).Post("/verify", deps.Auth.Verify)
		r.With(compact(deps.RLRefresh)...).Post("/refresh", deps.Auth.Refresh)
		r.Post("/logout", deps.Auth.Logout)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.Use(compact(deps.RLUsers)...)

		// static segments before {id}
		r.Post("/me/request-verification", deps.Users.RequestVerification)
		r.With(deps.ModMW).Get("/verification-requests", deps.Users.ListVerificationRequests)

		r.Put("/{id}/profile", deps.Users.UpdateProfile)
		r.With(deps.ModMW).Post("/{id}/verify", deps.Users.ReviewVerification)

		r.Group(func(r chi.Router) {
			r.Use(deps.AdminMW)
			r.Post("/{id}/block", deps.Users.Block)
			r.Post("/{id}/unblock", deps.Users.Unblock)
			r.Post("/{id}/role", deps.Users.SetRole)
			r.Delete("/{id}", deps.Users.Delete)
		})
	})

	return r, nil
}

func compact(mws ...Middleware) []Middleware {
	out := make([]Middleware, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
