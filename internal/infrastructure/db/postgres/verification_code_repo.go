package postgres

import (
	"context"
	"database/sql"

	"github.com/catboard/auth-service/internal/domain"
)

type VerificationCodeRepo struct {
	db *sql.DB
}

func NewVerificationCodeRepo(db *sql.DB) *VerificationCodeRepo {
	return &VerificationCodeRepo{db: db}
}

func (r *VerificationCodeRepo) Create(ctx context.Context, c domain.VerificationCode) error {
	const q = `
INSERT INTO verification_codes (id, user_id, code, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5);`

	if _, err := r.db.ExecContext(ctx, q, c.ID, c.UserID, c.Code, c.ExpiresAt, c.CreatedAt); err != nil {
		if pgErrCode(err) == pgErrForeignKeyViolation {
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// Find is an exact (user, code) match. When the same code was drawn twice the
// one expiring last wins.
func (r *VerificationCodeRepo) Find(ctx context.Context, userID, code string) (domain.VerificationCode, error) {
	const q = `
SELECT id, user_id, code, expires_at, created_at
FROM verification_codes
WHERE user_id = $1 AND code = $2
ORDER BY expires_at DESC
LIMIT 1;`

	var vc domain.VerificationCode
	err := r.db.QueryRowContext(ctx, q, userID, code).Scan(&vc.ID, &vc.UserID, &vc.Code, &vc.ExpiresAt, &vc.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.VerificationCode{}, domain.ErrInvalidOrExpiredCode()
		}
		return domain.VerificationCode{}, domain.ErrDBUnavailable(err)
	}
	return vc, nil
}

func (r *VerificationCodeRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE user_id = $1;`, userID); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
