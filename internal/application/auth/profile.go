package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/catboard/auth-service/internal/domain"
)

const (
	maxNameLen     = 100
	maxPhoneLen    = 15
	maxTelegramLen = 50
)

// ProfileUpdate carries optional profile fields; empty means "leave as is".
type ProfileUpdate struct {
	Name             string
	PhoneNumber      string
	TelegramUsername string
}

// UpdateProfile changes the caller's own profile. actorID must own targetUserID.
func (s *Service) UpdateProfile(ctx context.Context, actorID, targetUserID string, in ProfileUpdate) (domain.User, error) {
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)

	audit := s.auditor(ctx, "user.update_profile", map[string]string{
		"actor_id":  actorID,
		"target_id": targetUserID,
	})

	if actorID == "" || actorID != targetUserID {
		err := domain.ErrNotOwner()
		audit("error", err, nil)
		return domain.User{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.TelegramUsername = strings.TrimPrefix(strings.TrimSpace(in.TelegramUsername), "@")

	for _, c := range []struct {
		field, value string
		max          int
	}{
		{"name", in.Name, maxNameLen},
		{"phone_number", in.PhoneNumber, maxPhoneLen},
		{"telegram_username", in.TelegramUsername, maxTelegramLen},
	} {
		if utf8.RuneCountInString(c.value) > c.max {
			err := domain.ErrValidation(c.field, "max")
			audit("error", err, nil)
			return domain.User{}, err
		}
	}
	if !phoneLike(in.PhoneNumber) {
		err := domain.ErrValidation("phone_number", "phone")
		audit("error", err, nil)
		return domain.User{}, err
	}

	u, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.PhoneNumber != "" {
		u.PhoneNumber = in.PhoneNumber
	}
	if in.TelegramUsername != "" {
		u.TelegramUsername = in.TelegramUsername
	}
	u.UpdatedAt = s.clock.Now()

	updated, err := s.users.Update(ctx, u)
	if err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}

	audit("success", nil, nil)
	return updated, nil
}

// phoneLike accepts digits, spaces and +()-.
func phoneLike(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ', r == '+', r == '(', r == ')', r == '-':
		default:
			return false
		}
	}
	return true
}
