package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/catboard/auth-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	// injected errors (if set, method returns error)
	getByIDErr     error
	getByEmailErr  error
	createErr      error
	updateErr      error
	deleteErr      error
	countByRoleErr error
	listErr        error

	updates int
	deleted []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return domain.User{}, f.updateErr
	}
	if _, ok := f.byID[u.ID]; !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	f.byID[u.ID] = u
	f.updates++
	return u, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return domain.ErrUserNotFound()
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.countByRoleErr != nil {
		return 0, f.countByRoleErr
	}
	cnt := 0
	for _, u := range f.byID {
		if u.Role == role {
			cnt++
		}
	}
	return cnt, nil
}

func (f *fakeUserRepo) ListVerificationRequests(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var pending []domain.User
	for _, u := range f.byID {
		if u.VerificationRequested {
			pending = append(pending, u)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	total := len(pending)
	if offset >= total {
		return []domain.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return pending[offset:end], total, nil
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	signFn func(userID string, role domain.Role, ttl time.Duration) (string, error)
}

func (s *fakeSigner) SignAccessToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	if s.signFn != nil {
		return s.signFn(userID, role, ttl)
	}
	return fmt.Sprintf("jwt(%s,%s)", userID, role), nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	return TokenClaims{}, nil
}

// fakeTokens resolves the owning user through users, like the SQL join does.
type fakeTokens struct {
	mu sync.Mutex

	users   *fakeUserRepo
	byValue map[string]domain.RefreshToken

	addErr    error
	findErr   error
	removeErr error
	rotateErr error

	removed []string
}

func newFakeTokens(users *fakeUserRepo) *fakeTokens {
	return &fakeTokens{users: users, byValue: map[string]domain.RefreshToken{}}
}

func (s *fakeTokens) has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byValue[token]
	return ok
}

func (s *fakeTokens) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byValue)
}

func (s *fakeTokens) Add(ctx context.Context, t domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addErr != nil {
		return s.addErr
	}
	s.byValue[t.Token] = t
	return nil
}

func (s *fakeTokens) FindByValue(ctx context.Context, token string) (domain.RefreshToken, domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return domain.RefreshToken{}, domain.User{}, s.findErr
	}
	t, ok := s.byValue[token]
	if !ok {
		return domain.RefreshToken{}, domain.User{}, domain.ErrInvalidOrExpiredToken("unknown")
	}
	u, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		return domain.RefreshToken{}, domain.User{}, domain.ErrInvalidOrExpiredToken("unknown")
	}
	return t, u, nil
}

func (s *fakeTokens) Remove(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}
	if _, ok := s.byValue[token]; !ok {
		return domain.ErrInvalidOrExpiredToken("unknown")
	}
	delete(s.byValue, token)
	s.removed = append(s.removed, token)
	return nil
}

func (s *fakeTokens) Rotate(ctx context.Context, oldToken string, next domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotateErr != nil {
		return s.rotateErr
	}
	if _, ok := s.byValue[oldToken]; !ok {
		return domain.ErrInvalidOrExpiredToken("unknown")
	}
	delete(s.byValue, oldToken)
	s.byValue[next.Token] = next
	return nil
}

type fakeCodes struct {
	mu sync.Mutex

	byUser map[string][]domain.VerificationCode

	createErr    error
	deleteAllErr error
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{byUser: map[string][]domain.VerificationCode{}}
}

func (c *fakeCodes) forUser(userID string) []domain.VerificationCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.VerificationCode(nil), c.byUser[userID]...)
}

func (c *fakeCodes) Create(ctx context.Context, vc domain.VerificationCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createErr != nil {
		return c.createErr
	}
	c.byUser[vc.UserID] = append(c.byUser[vc.UserID], vc)
	return nil
}

func (c *fakeCodes) Find(ctx context.Context, userID, code string) (domain.VerificationCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, vc := range c.byUser[userID] {
		if vc.Code == code {
			return vc, nil
		}
	}
	return domain.VerificationCode{}, domain.ErrInvalidOrExpiredCode()
}

func (c *fakeCodes) DeleteAllForUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteAllErr != nil {
		return c.deleteAllErr
	}
	delete(c.byUser, userID)
	return nil
}

type fakeDelivery struct {
	mu   sync.Mutex
	err  error
	sent []VerificationCodeEvent

	// ctxErr records ctx.Err() at call time.
	ctxErr error
}

func (d *fakeDelivery) DeliverVerificationCode(ctx context.Context, evt VerificationCodeEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ctxErr = ctx.Err()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, evt)
	return nil
}

func (d *fakeDelivery) last() (VerificationCodeEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return VerificationCodeEvent{}, false
	}
	return d.sent[len(d.sent)-1], true
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSecrets hands out predictable, unique values.
type fakeSecrets struct {
	mu      sync.Mutex
	n       int
	codes   []string
	codeErr error
	tokErr  error
}

func (g *fakeSecrets) VerificationCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.codeErr != nil {
		return "", g.codeErr
	}
	if len(g.codes) > 0 {
		c := g.codes[0]
		g.codes = g.codes[1:]
		return c, nil
	}
	g.n++
	return fmt.Sprintf("%06d", 100000+g.n), nil
}

func (g *fakeSecrets) RefreshToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tokErr != nil {
		return "", g.tokErr
	}
	g.n++
	return fmt.Sprintf("rt-%d", g.n), nil
}

// fakeAttempts allows limit attempts per key; err overrides everything.
type fakeAttempts struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
	err   error
}

func (a *fakeAttempts) Allow(_ context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return false, a.err
	}
	if a.seen == nil {
		a.seen = map[string]int{}
	}
	a.seen[key]++
	return a.seen[key] <= a.limit, nil
}

/*
Service factory for tests
*/

type testDeps struct {
	users    *fakeUserRepo
	hasher   *fakeHasher
	signer   *fakeSigner
	tokens   *fakeTokens
	codes    *fakeCodes
	delivery *fakeDelivery
	clock    *fakeClock
	secrets  *fakeSecrets
	audits   *[]auditEntry
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	users := newFakeUserRepo()
	d := &testDeps{
		users:    users,
		hasher:   &fakeHasher{},
		signer:   &fakeSigner{},
		tokens:   newFakeTokens(users),
		codes:    newFakeCodes(),
		delivery: &fakeDelivery{},
		clock:    &fakeClock{now: testNow},
		secrets:  &fakeSecrets{},
		audits:   &[]auditEntry{},
	}

	var mu sync.Mutex
	svc := NewService(d.users, d.hasher, d.signer, d.tokens, d.codes, d.delivery, Config{
		AccessTTL:  testAccessTTL,
		RefreshTTL: testRefreshTTL,
	}).
		WithClock(d.clock).
		WithSecrets(d.secrets).
		WithAudit(func(_ context.Context, action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			mu.Lock()
			*d.audits = append(*d.audits, auditEntry{action: action, fields: cp})
			mu.Unlock()
		})

	if svc == nil {
		t.Fatalf("svc is nil")
	}
	return svc, d
}

func seedUser(d *testDeps, id string, role domain.Role, mutate ...func(*domain.User)) domain.User {
	u := domain.User{
		ID:            id,
		Name:          "Cat " + id,
		Email:         id + "@example.com",
		PasswordHash:  "hash:secret",
		Role:          role,
		EmailVerified: true,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	for _, m := range mutate {
		m(&u)
	}
	d.users.put(u)
	return u
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func findAudit(audits *[]auditEntry, action string) (auditEntry, bool) {
	for i := len(*audits) - 1; i >= 0; i-- {
		if (*audits)[i].action == action {
			return (*audits)[i], true
		}
	}
	return auditEntry{}, false
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := findAudit(audits, wantAction)
	if !ok {
		t.Fatalf("expected audit action %q, got %v", wantAction, *audits)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
