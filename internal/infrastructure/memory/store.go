package memory

import (
	"sync"

	"github.com/catboard/auth-service/internal/domain"
)

// Store is the shared in-process state behind the memory repositories. One
// lock covers every table so user deletes can cascade to tokens and codes.
type Store struct {
	mu sync.RWMutex

	users   map[string]domain.User
	byEmail map[string]string // email -> user id

	tokens map[string]domain.RefreshToken // token value -> row
	codes  map[string][]domain.VerificationCode
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]domain.RefreshToken),
		codes:   make(map[string][]domain.VerificationCode),
	}
}

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

func (s *Store) RefreshTokens() *RefreshTokenStore { return &RefreshTokenStore{s: s} }

func (s *Store) Codes() *CodeStore { return &CodeStore{s: s} }
