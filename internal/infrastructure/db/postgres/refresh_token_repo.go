package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

type RefreshTokenRepo struct {
	db *sql.DB
}

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

const insertRefreshToken = `
INSERT INTO refresh_tokens (id, token, user_id, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5);`

func (r *RefreshTokenRepo) Add(ctx context.Context, t domain.RefreshToken) error {
	if t.Token == "" {
		return domain.ErrMissingField("token")
	}
	_, err := r.db.ExecContext(ctx, insertRefreshToken, t.ID, t.Token, t.UserID, t.ExpiresAt, t.CreatedAt)
	return mapTokenInsertErr(err)
}

// FindByValue loads the token and its owner in one round trip.
func (r *RefreshTokenRepo) FindByValue(ctx context.Context, token string) (domain.RefreshToken, domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.RefreshToken{}, domain.User{}, domain.ErrMissingToken()
	}

	const q = `
SELECT rt.id, rt.token, rt.user_id, rt.expires_at, rt.created_at,
       u.id, u.name, u.email, u.password_hash, u.role, u.blocked, u.email_verified, u.verification_requested,
       u.phone_number, u.telegram_username, u.created_at, u.updated_at
FROM refresh_tokens rt
JOIN users u ON u.id = rt.user_id
WHERE rt.token = $1
LIMIT 1;`

	var (
		rt domain.RefreshToken
		ur userRow
	)
	dest := append([]any{&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt}, ur.fields()...)
	if err := r.db.QueryRowContext(ctx, q, token).Scan(dest...); err != nil {
		if isNoRows(err) {
			return domain.RefreshToken{}, domain.User{}, domain.ErrInvalidOrExpiredToken("unknown")
		}
		return domain.RefreshToken{}, domain.User{}, domain.ErrDBUnavailable(err)
	}
	return rt, ur.toDomain(), nil
}

func (r *RefreshTokenRepo) Remove(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1;`, token)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrInvalidOrExpiredToken("unknown")
	}
	return nil
}

// Rotate deletes oldToken and inserts next in one transaction. If oldToken was
// already consumed by a concurrent call, nothing is inserted.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldToken string, next domain.RefreshToken) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1;`, oldToken)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.ErrInvalidOrExpiredToken("rotated")
	}

	if _, err = tx.ExecContext(ctx, insertRefreshToken, next.ID, next.Token, next.UserID, next.ExpiresAt, next.CreatedAt); err != nil {
		return mapTokenInsertErr(err)
	}

	if err = tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func mapTokenInsertErr(err error) error {
	if err == nil {
		return nil
	}
	if pgErrCode(err) == pgErrForeignKeyViolation {
		return domain.ErrUserNotFound()
	}
	return domain.ErrDBUnavailable(err)
}
