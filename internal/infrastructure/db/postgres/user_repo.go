package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`

	ur, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`

	ur, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// Create inserts a user. The unique index on email decides concurrent duplicates.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if !u.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(string(u.Role))
	}

	q := `
INSERT INTO users (id, name, email, password_hash, role, blocked, email_verified, verification_requested,
                   phone_number, telegram_username, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING ` + userColumns + `;`

	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role),
		u.Blocked, u.EmailVerified, u.VerificationRequested,
		u.PhoneNumber, u.TelegramUsername, u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		if pgErrCode(err) == pgErrUniqueViolation {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// Update writes every mutable column. Email and password hash are not mutable here.
func (r *UserRepo) Update(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if !u.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(string(u.Role))
	}

	q := `
UPDATE users
SET name = $2,
    role = $3,
    blocked = $4,
    email_verified = $5,
    verification_requested = $6,
    phone_number = $7,
    telegram_username = $8,
    updated_at = $9
WHERE id = $1
RETURNING ` + userColumns + `;`

	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, string(u.Role), u.Blocked, u.EmailVerified, u.VerificationRequested,
		u.PhoneNumber, u.TelegramUsername, u.UpdatedAt,
	))
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// Delete removes the user; refresh tokens and codes go with it via ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrMissingField("id")
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	if !role.Valid() {
		return 0, domain.ErrInvalidRole(string(role))
	}

	const q = `SELECT COUNT(1) FROM users WHERE role = $1;`

	var n int
	if err := r.db.QueryRowContext(ctx, q, string(role)).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

// ListVerificationRequests returns pending users, newest first, plus the total count.
func (r *UserRepo) ListVerificationRequests(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	const countQ = `SELECT COUNT(1) FROM users WHERE verification_requested = TRUE;`

	var total int
	if err := r.db.QueryRowContext(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	q := `
SELECT ` + userColumns + `
FROM users
WHERE verification_requested = TRUE
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2;`

	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		ur, err := scanUser(rows)
		if err != nil {
			return nil, 0, domain.ErrDBUnavailable(err)
		}
		out = append(out, ur.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	return out, total, nil
}
