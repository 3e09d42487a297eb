package http_handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/transport/http/dto"
)

func asActor(req *http.Request, u domain.User, id string) *http.Request {
	if id != "" {
		req = withURLParam(req, "id", id)
	}
	return withUserCtx(req, u.ID, u.Role)
}

func TestUpdateProfile_OwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	owner := e.seedUser(t, "own@x.com", domain.RoleUser, "secret1")
	other := e.seedUser(t, "oth@x.com", domain.RoleUser, "secret1")

	body := map[string]string{"name": "Kitty", "phone_number": "+7 (701) 123"}

	rr := httptest.NewRecorder()
	e.users.UpdateProfile(rr, asActor(jsonRequest(t, http.MethodPut, "/x", body), other, owner.ID))
	expectError(t, rr, http.StatusForbidden, "not_owner")

	rr = httptest.NewRecorder()
	e.users.UpdateProfile(rr, asActor(jsonRequest(t, http.MethodPut, "/x", body), owner, owner.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var out dto.MeData
	mustReadData(t, rr, &out)
	if out.User.Name != "Kitty" || out.User.PhoneNumber != "+7 (701) 123" {
		t.Fatalf("unexpected user %+v", out.User)
	}
}

func TestUpdateProfile_TooLongPhone_400(t *testing.T) {
	e := newTestEnv(t)
	owner := e.seedUser(t, "own@x.com", domain.RoleUser, "secret1")

	rr := httptest.NewRecorder()
	e.users.UpdateProfile(rr, asActor(jsonRequest(t, http.MethodPut, "/x", map[string]string{
		"phone_number": "1234567890123456",
	}), owner, owner.ID))

	eb := expectError(t, rr, http.StatusBadRequest, "validation_failed")
	if eb.Error.Meta["field"] != "phone_number" {
		t.Fatalf("unexpected meta %v", eb.Error.Meta)
	}
}

func TestVerificationRequest_ReviewFlow(t *testing.T) {
	e := newTestEnv(t)
	mod := e.seedUser(t, "mod@x.com", domain.RoleModerator, "secret1")
	u := e.seedUser(t, "u@x.com", domain.RoleUser, "secret1")

	rr := httptest.NewRecorder()
	e.users.RequestVerification(rr, asActor(httptest.NewRequest(http.MethodPost, "/x", nil), u, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("request-verification: got %d body=%s", rr.Code, rr.Body.String())
	}

	// plain user cannot list
	rr = httptest.NewRecorder()
	e.users.ListVerificationRequests(rr, asActor(httptest.NewRequest(http.MethodGet, "/x", nil), u, ""))
	expectError(t, rr, http.StatusForbidden, "insufficient_role")

	rr = httptest.NewRecorder()
	e.users.ListVerificationRequests(rr, asActor(httptest.NewRequest(http.MethodGet, "/x?page=1&page_size=10", nil), mod, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("list: got %d body=%s", rr.Code, rr.Body.String())
	}
	var page dto.UserPageData
	mustReadData(t, rr, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != u.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	rr = httptest.NewRecorder()
	e.users.ReviewVerification(rr, asActor(httptest.NewRequest(http.MethodPost, "/x?approved=true", nil), mod, u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("review: got %d body=%s", rr.Code, rr.Body.String())
	}

	got, err := e.svc.GetUserByID(t.Context(), u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != domain.RoleVerifiedUser || got.VerificationRequested {
		t.Fatalf("expected VerifiedUser with request cleared, got %+v", got)
	}
}

func TestListVerificationRequests_BadPage_400(t *testing.T) {
	e := newTestEnv(t)
	mod := e.seedUser(t, "mod@x.com", domain.RoleModerator, "secret1")

	rr := httptest.NewRecorder()
	e.users.ListVerificationRequests(rr, asActor(httptest.NewRequest(http.MethodGet, "/x?page=abc", nil), mod, ""))
	expectError(t, rr, http.StatusBadRequest, "validation_failed")

	rr = httptest.NewRecorder()
	e.users.ListVerificationRequests(rr, asActor(httptest.NewRequest(http.MethodGet, "/x?page_size=1000", nil), mod, ""))
	expectError(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestReviewVerification_BadFlag_400(t *testing.T) {
	e := newTestEnv(t)
	mod := e.seedUser(t, "mod@x.com", domain.RoleModerator, "secret1")

	rr := httptest.NewRecorder()
	e.users.ReviewVerification(rr, asActor(httptest.NewRequest(http.MethodPost, "/x?approved=maybe", nil), mod, "someone"))
	expectError(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestBlockUnblock_Admin(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "admin@x.com", domain.RoleAdministrator, "secret1")
	u := e.seedUser(t, "u@x.com", domain.RoleUser, "secret1")

	rr := httptest.NewRecorder()
	e.users.Block(rr, asActor(httptest.NewRequest(http.MethodPost, "/x", nil), admin, admin.ID))
	expectError(t, rr, http.StatusForbidden, "cannot_affect_self")

	rr = httptest.NewRecorder()
	e.users.Block(rr, asActor(httptest.NewRequest(http.MethodPost, "/x", nil), admin, u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("block: got %d body=%s", rr.Code, rr.Body.String())
	}
	expectError(t, login(t, e, "u@x.com", "secret1"), http.StatusLocked, "account_locked")

	rr = httptest.NewRecorder()
	e.users.Unblock(rr, asActor(httptest.NewRequest(http.MethodPost, "/x", nil), admin, u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("unblock: got %d", rr.Code)
	}
	if rr := login(t, e, "u@x.com", "secret1"); rr.Code != http.StatusOK {
		t.Fatalf("login after unblock: got %d", rr.Code)
	}
}

func TestBlock_NonAdmin_403(t *testing.T) {
	e := newTestEnv(t)
	mod := e.seedUser(t, "mod@x.com", domain.RoleModerator, "secret1")
	u := e.seedUser(t, "u@x.com", domain.RoleUser, "secret1")

	rr := httptest.NewRecorder()
	e.users.Block(rr, asActor(httptest.NewRequest(http.MethodPost, "/x", nil), mod, u.ID))
	expectError(t, rr, http.StatusForbidden, "insufficient_role")
}

func TestSetRole(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "admin@x.com", domain.RoleAdministrator, "secret1")
	u := e.seedUser(t, "u@x.com", domain.RoleUser, "secret1")

	rr := httptest.NewRecorder()
	e.users.SetRole(rr, asActor(jsonRequest(t, http.MethodPost, "/x", map[string]string{"role": "superuser"}), admin, u.ID))
	expectError(t, rr, http.StatusBadRequest, "invalid_role")

	rr = httptest.NewRecorder()
	e.users.SetRole(rr, asActor(jsonRequest(t, http.MethodPost, "/x", map[string]string{"role": "Administrator"}), admin, admin.ID))
	expectError(t, rr, http.StatusForbidden, "cannot_affect_self")

	rr = httptest.NewRecorder()
	e.users.SetRole(rr, asActor(jsonRequest(t, http.MethodPost, "/x", map[string]string{"role": "NewsEditor"}), admin, u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("set role: got %d body=%s", rr.Code, rr.Body.String())
	}
	var out dto.ActionData
	mustReadData(t, rr, &out)
	if out.Role != "NewsEditor" || out.Status != "role_changed" {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestDelete_Admin_CascadesSessions(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "admin@x.com", domain.RoleAdministrator, "secret1")
	u := e.seedUser(t, "u@x.com", domain.RoleUser, "secret1")
	toks := loginTokens(t, e, "u@x.com", "secret1")

	rr := httptest.NewRecorder()
	e.users.Delete(rr, asActor(httptest.NewRequest(http.MethodDelete, "/x", nil), admin, u.ID))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	e.auth.Refresh(rr, jsonRequest(t, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": toks.Tokens.RefreshToken,
	}))
	expectError(t, rr, http.StatusUnauthorized, "invalid_or_expired_token")

	rr = httptest.NewRecorder()
	e.users.Delete(rr, asActor(httptest.NewRequest(http.MethodDelete, "/x", nil), admin, u.ID))
	expectError(t, rr, http.StatusNotFound, "user_not_found")
}
