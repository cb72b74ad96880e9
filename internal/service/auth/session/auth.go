package session_auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Token = string

var (
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
)

type SessionCache interface {
	Set(key string, value string, ttl time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
}

type Service struct {
	sessionCache SessionCache
	ttl          time.Duration
}

func New(sessionCache SessionCache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		sessionCache: sessionCache,
		ttl:          ttl,
	}
}

// Create issues an opaque bearer token bound to the user for the session TTL.
func (s *Service) Create(userID int64) (Token, error) {
	t := s.genToken()
	if err := s.sessionCache.Set(t, strconv.FormatInt(userID, 10), s.ttl); err != nil {
		return "", errors.Join(ErrInternal, err)
	}
	return t, nil
}

// Resolve maps a token back to its user. Missing and expired tokens
// are both ErrUnauthorized.
func (s *Service) Resolve(t Token) (int64, error) {
	v, err := s.sessionCache.Get(t)
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}
	if v == "" {
		return 0, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrInternal, err)
	}
	return userID, nil
}

func (s *Service) Drop(t Token) error {
	if err := s.sessionCache.Delete(t); err != nil {
		return errors.Join(ErrInternal, err)
	}
	return nil
}

func (s *Service) genToken() Token {
	return uuid.New().String()
}
