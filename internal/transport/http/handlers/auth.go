package http_handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/infrastructure/security"
	"github.com/catboard/auth-service/internal/logger"
	"github.com/catboard/auth-service/internal/transport/http/dto"
	"github.com/catboard/auth-service/internal/transport/http/middleware"
	"github.com/catboard/auth-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc        *auth.Service
	cookies    security.CookieWriter
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(svc *auth.Service, accessTTL, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		cookies:    security.CookieWriter{Secure: secureCookies},
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register accepts JSON or a form post. No tokens are issued until the
// emailed code is verified.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if response.IsForm(r) {
		get, err := response.DecodeForm(w, r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		req = dto.RegisterRequest{Name: get("name"), Email: get("email"), Password: get("password")}
	} else if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		middleware.RegistrationsTotal.WithLabelValues(middleware.Outcome(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	middleware.RegistrationsTotal.WithLabelValues(middleware.Outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	response.Created(w, r, dto.RegisterData{
		User:                 dto.NewUserView(res.User),
		VerificationRequired: !res.User.EmailVerified,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if response.IsForm(r) {
		get, err := response.DecodeForm(w, r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		req = dto.LoginRequest{Email: get("email"), Password: get("password")}
	} else if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	middleware.LoginAttemptsTotal.WithLabelValues(middleware.Outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	h.cookies.SetTokens(w, res.Tokens.AccessToken, h.accessTTL, res.Tokens.RefreshToken, h.refreshTTL)
	response.OK(w, r, dto.AuthData{User: dto.NewUserView(res.User), Tokens: dto.NewTokensView(res.Tokens)})
}

// Verify consumes the emailed code and signs the user in.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		middleware.VerificationsTotal.WithLabelValues(middleware.Outcome(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Verify(r.Context(), req.UserID, req.Code)
	middleware.VerificationsTotal.WithLabelValues(middleware.Outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	h.cookies.SetTokens(w, res.Tokens.AccessToken, h.accessTTL, res.Tokens.RefreshToken, h.refreshTTL)
	response.OK(w, r, dto.AuthData{User: dto.NewUserView(res.User), Tokens: dto.NewTokensView(res.Tokens)})
}

// Refresh reads the RefreshToken cookie first, then an optional JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshTok, _ := security.ReadRefreshToken(r)
	if refreshTok == "" && r.ContentLength != 0 {
		var req dto.RefreshRequest
		// an empty body (chunked, so ContentLength -1) means no token
		if err := response.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			response.WriteError(w, r, err)
			return
		}
		refreshTok = req.RefreshToken
	}
	if refreshTok == "" {
		middleware.TokenRefreshTotal.WithLabelValues("missing_token").Inc()
		response.WriteError(w, r, domain.ErrMissingToken())
		return
	}

	toks, user, err := h.svc.Refresh(r.Context(), refreshTok)
	middleware.TokenRefreshTotal.WithLabelValues(middleware.Outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	h.cookies.SetTokens(w, toks.AccessToken, h.accessTTL, toks.RefreshToken, h.refreshTTL)
	response.OK(w, r, dto.AuthData{User: dto.NewUserView(user), Tokens: dto.NewTokensView(toks)})
}

// Logout always clears both cookies, even when the token was already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshTok, _ := security.ReadRefreshToken(r)

	err := h.svc.Logout(r.Context(), refreshTok)
	h.cookies.ClearTokens(w)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrMissingToken())
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), uid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.MeData{User: dto.NewUserView(u)})
}
