package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
)

var (
	_ auth.UserRepo              = (*UserRepo)(nil)
	_ auth.RefreshTokenStore     = (*RefreshTokenStore)(nil)
	_ auth.VerificationCodeStore = (*CodeStore)(nil)
	_ auth.CodeDelivery          = (*LogDelivery)(nil)
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newUser(id string, created time.Time) domain.User {
	return domain.User{
		ID:        id,
		Email:     id + "@example.com",
		Role:      domain.RoleUser,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestUserRepo_CreateAndLookup(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	_, err := users.Create(ctx, newUser("u1", t0))
	require.NoError(t, err)

	byEmail, err := users.GetByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	_, err = users.Create(ctx, newUser("u1", t0))
	assert.True(t, domain.Is(err, "email_already_exists"), "got %v", err)

	_, err = users.GetByID(ctx, "nope")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserRepo_Create_RejectsBadRole(t *testing.T) {
	u := newUser("u1", t0)
	u.Role = "root"

	_, err := NewStore().Users().Create(context.Background(), u)
	assert.True(t, domain.Is(err, "invalid_role"), "got %v", err)
}

func TestUserRepo_Update_KeepsEmailIndex(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	_, err := users.Create(ctx, newUser("u1", t0))
	require.NoError(t, err)
	_, err = users.Create(ctx, newUser("u2", t0))
	require.NoError(t, err)

	u, _ := users.GetByID(ctx, "u1")
	u.Email = "u2@example.com"
	_, err = users.Update(ctx, u)
	assert.True(t, domain.Is(err, "email_already_exists"))

	u.Email = "new@example.com"
	u.Blocked = true
	_, err = users.Update(ctx, u)
	require.NoError(t, err)

	got, err := users.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	_, err = users.GetByEmail(ctx, "u1@example.com")
	assert.True(t, domain.Is(err, "user_not_found"))

	_, err = users.Update(ctx, newUser("ghost", t0))
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserRepo_Delete_Cascades(t *testing.T) {
	st := NewStore()
	users, tokens, codes := st.Users(), st.RefreshTokens(), st.Codes()
	ctx := context.Background()

	_, err := users.Create(ctx, newUser("u1", t0))
	require.NoError(t, err)
	require.NoError(t, tokens.Add(ctx, domain.RefreshToken{Token: "tok", UserID: "u1", ExpiresAt: t0.Add(time.Hour)}))
	require.NoError(t, codes.Create(ctx, domain.VerificationCode{UserID: "u1", Code: "123456", ExpiresAt: t0.Add(time.Minute)}))

	require.NoError(t, users.Delete(ctx, "u1"))

	_, _, err = tokens.FindByValue(ctx, "tok")
	assert.True(t, domain.Is(err, "invalid_or_expired_token"))
	assert.Equal(t, 0, codes.Count("u1"))

	assert.True(t, domain.Is(users.Delete(ctx, "u1"), "user_not_found"))
}

func TestUserRepo_CountByRole(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	admin := newUser("a1", t0)
	admin.Role = domain.RoleAdministrator
	_, _ = users.Create(ctx, admin)
	_, _ = users.Create(ctx, newUser("u1", t0))

	n, err := users.CountByRole(ctx, domain.RoleAdministrator)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepo_ListVerificationRequests_NewestFirstPaged(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		u := newUser(id, t0.Add(time.Duration(i)*time.Minute))
		u.VerificationRequested = true
		_, err := users.Create(ctx, u)
		require.NoError(t, err)
	}
	_, _ = users.Create(ctx, newUser("quiet", t0.Add(time.Hour)))

	page, total, err := users.ListVerificationRequests(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, _, err = users.ListVerificationRequests(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	page, total, err = users.ListVerificationRequests(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestRefreshTokenStore_FindRemove(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	_, _ = st.Users().Create(ctx, newUser("u1", t0))
	tokens := st.RefreshTokens()

	assert.True(t, domain.Is(tokens.Add(ctx, domain.RefreshToken{Token: "x", UserID: "ghost"}), "user_not_found"))

	require.NoError(t, tokens.Add(ctx, domain.RefreshToken{Token: "tok", UserID: "u1"}))

	rt, owner, err := tokens.FindByValue(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", rt.UserID)
	assert.Equal(t, "u1@example.com", owner.Email)

	_, _, err = tokens.FindByValue(ctx, "")
	assert.True(t, domain.Is(err, "missing_token"))

	require.NoError(t, tokens.Remove(ctx, "tok"))
	assert.True(t, domain.Is(tokens.Remove(ctx, "tok"), "invalid_or_expired_token"))
}

func TestRefreshTokenStore_Rotate_SingleWinner(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	_, _ = st.Users().Create(ctx, newUser("u1", t0))
	tokens := st.RefreshTokens()
	require.NoError(t, tokens.Add(ctx, domain.RefreshToken{Token: "old", UserID: "u1"}))

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := domain.RefreshToken{Token: "new-" + string(rune('a'+i)), UserID: "u1"}
			if err := tokens.Rotate(ctx, "old", next); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	st.mu.RLock()
	assert.Len(t, st.tokens, 1)
	st.mu.RUnlock()
}

func TestCodeStore_FindExactLatest(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	_, _ = st.Users().Create(ctx, newUser("u1", t0))
	codes := st.Codes()

	require.NoError(t, codes.Create(ctx, domain.VerificationCode{ID: "c1", UserID: "u1", Code: "111111", ExpiresAt: t0}))
	require.NoError(t, codes.Create(ctx, domain.VerificationCode{ID: "c2", UserID: "u1", Code: "111111", ExpiresAt: t0.Add(time.Minute)}))
	require.NoError(t, codes.Create(ctx, domain.VerificationCode{ID: "c3", UserID: "u1", Code: "222222", ExpiresAt: t0}))

	got, err := codes.Find(ctx, "u1", "111111")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)

	_, err = codes.Find(ctx, "u1", "11111")
	assert.True(t, domain.Is(err, "invalid_or_expired_code"))

	require.NoError(t, codes.DeleteAllForUser(ctx, "u1"))
	assert.Equal(t, 0, codes.Count("u1"))
}

func TestLogDelivery_RecordsLast(t *testing.T) {
	d := NewLogDelivery()
	ctx := context.Background()

	require.NoError(t, d.DeliverVerificationCode(ctx, auth.VerificationCodeEvent{UserID: "u1", Code: "111111"}))
	require.NoError(t, d.DeliverVerificationCode(ctx, auth.VerificationCodeEvent{UserID: "u1", Code: "222222"}))

	evt, ok := d.Last("u1")
	require.True(t, ok)
	assert.Equal(t, "222222", evt.Code)

	_, ok = d.Last("u2")
	assert.False(t, ok)
}

func TestService_EndToEnd_OnMemoryStores(t *testing.T) {
	st := NewStore()
	delivery := NewLogDelivery()
	svc := auth.NewService(
		st.Users(), plainHasher{}, stubSigner{}, st.RefreshTokens(), st.Codes(), delivery,
		auth.Config{AccessTTL: time.Minute, RefreshTTL: time.Hour},
	)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Tom", "Tom@Example.com", "Password123!")
	require.NoError(t, err)

	evt, ok := delivery.Last(reg.User.ID)
	require.True(t, ok)

	res, err := svc.Verify(ctx, reg.User.ID, evt.Code)
	require.NoError(t, err)
	assert.True(t, res.User.EmailVerified)

	next, _, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	_, _, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.True(t, domain.Is(err, "invalid_or_expired_token"))

	require.NoError(t, svc.Logout(ctx, next.RefreshToken))
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

func (plainHasher) Compare(h, p string) error {
	if h != "h:"+p {
		return domain.ErrInvalidCredentials()
	}
	return nil
}

type stubSigner struct{}

func (stubSigner) SignAccessToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	return "jwt-" + userID, nil
}

func (stubSigner) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	return auth.TokenClaims{}, domain.ErrInvalidOrExpiredToken("invalid")
}
