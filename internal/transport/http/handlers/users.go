package http_handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/transport/http/dto"
	"github.com/catboard/auth-service/internal/transport/http/middleware"
	"github.com/catboard/auth-service/internal/transport/http/response"
)

// UsersHandler serves profile, verification review and admin account actions.
type UsersHandler struct {
	svc *auth.Service
}

func NewUsersHandler(svc *auth.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func actor(r *http.Request) (id, role string, err error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return "", "", domain.ErrMissingToken()
	}
	role, _ = middleware.RoleFromContext(r.Context())
	return id, role, nil
}

func targetID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", domain.ErrMissingField("id")
	}
	return id, nil
}

// UpdateProfile handles PUT /users/{id}/profile.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	target, err := targetID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), actorID, target, auth.ProfileUpdate{
		Name:             req.Name,
		PhoneNumber:      req.PhoneNumber,
		TelegramUsername: req.TelegramUsername,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.MeData{User: dto.NewUserView(u)})
}

func (h *UsersHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.svc.RequestVerification(r.Context(), actorID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ActionData{Status: "requested", UserID: actorID})
}

// ListVerificationRequests handles GET /users/verification-requests?page=&page_size=.
func (h *UsersHandler) ListVerificationRequests(w http.ResponseWriter, r *http.Request) {
	_, role, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	q := dto.PageQuery{}
	for name, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			response.WriteError(w, r, domain.ErrValidation(name, "number"))
			return
		}
		*dst = n
	}
	if err := dto.Validate(&q); err != nil {
		response.WriteError(w, r, err)
		return
	}

	page, err := h.svc.ListVerificationRequests(r.Context(), role, q.Page, q.PageSize)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.NewUserPageData(page))
}

// ReviewVerification handles POST /users/{id}/verify?approved=true|false.
// A missing flag means approve.
func (h *UsersHandler) ReviewVerification(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	target, err := targetID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	approved := true
	if raw := strings.TrimSpace(r.URL.Query().Get("approved")); raw != "" {
		approved, err = strconv.ParseBool(raw)
		if err != nil {
			response.WriteError(w, r, domain.ErrValidation("approved", "boolean"))
			return
		}
	}

	if err := h.svc.ReviewVerification(r.Context(), actorID, role, target, approved); err != nil {
		response.WriteError(w, r, err)
		return
	}

	status := "rejected"
	if approved {
		status = "approved"
	}
	response.OK(w, r, dto.ActionData{Status: status, UserID: target})
}

func (h *UsersHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, "blocked", h.svc.BlockUser)
}

func (h *UsersHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, "unblocked", h.svc.UnblockUser)
}

func (h *UsersHandler) adminAction(
	w http.ResponseWriter,
	r *http.Request,
	status string,
	fn func(ctx context.Context, actorID, actorRole, targetID string) error,
) {
	actorID, role, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	target, err := targetID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := fn(r.Context(), actorID, role, target); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ActionData{Status: status, UserID: target})
}

// SetRole handles POST /users/{id}/role with {"role": "..."}.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	target, err := targetID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.SetRoleRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Role = strings.TrimSpace(req.Role)
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.SetUserRole(r.Context(), actorID, role, target, req.Role); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, dto.ActionData{Status: "role_changed", UserID: target, Role: req.Role})
}

// Delete handles DELETE /users/{id}. Sessions and codes go with the account.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	target, err := targetID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), actorID, role, target); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}
