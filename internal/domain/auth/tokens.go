package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"shiftrota/internal/platform/docstore"
)

const (
	TokenTypeReset = "reset"
	TokenTypeOTP   = "otp"

	DefaultResetTTL       = 30 * time.Minute
	DefaultOTPTTL         = 10 * time.Minute
	DefaultOTPMaxAttempts = 3
)

// Token is a pending password recovery, keyed in the store by the
// HashToken of the reset token or OTP code.
type Token struct {
	Type       string    `json:"type"`
	Department string    `json:"department"`
	Expiry     time.Time `json:"expiry"`
	Created    time.Time `json:"created"`
	Attempts   int       `json:"attempts"`
}

type TokenService struct {
	Store       docstore.Store
	ResetTTL    time.Duration
	OTPTTL      time.Duration
	MaxAttempts int
	Now         func() time.Time
	Random      io.Reader

	mu sync.Mutex
}

func NewTokenService(store docstore.Store) *TokenService {
	return &TokenService{
		Store:       store,
		ResetTTL:    DefaultResetTTL,
		OTPTTL:      DefaultOTPTTL,
		MaxAttempts: DefaultOTPMaxAttempts,
		Now:         time.Now,
		Random:      rand.Reader,
	}
}

// HashToken is the store key of a reset token or OTP code. The plain value
// only ever leaves the service in the email or SMS.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateResetToken issues a 32-byte URL-safe token for dept.
func (s *TokenService) CreateResetToken(ctx context.Context, dept string) (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(s.Random, buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.put(ctx, HashToken(token), TokenTypeReset, dept, s.ResetTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateResetToken returns the department a live reset token belongs to.
// An expired token is removed.
func (s *TokenService) ValidateResetToken(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := HashToken(token)
	t, ok := s.get(ctx, key)
	if !ok || t.Type != TokenTypeReset {
		return "", ErrTokenInvalid
	}
	if s.Now().After(t.Expiry) {
		s.remove(ctx, key)
		return "", ErrTokenInvalid
	}
	return t.Department, nil
}

// CreateOTP issues a six digit code between 100000 and 999999 for dept.
func (s *TokenService) CreateOTP(ctx context.Context, dept string) (string, error) {
	n, err := rand.Int(s.Random, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)
	if err := s.put(ctx, HashToken(code), TokenTypeOTP, dept, s.OTPTTL); err != nil {
		return "", err
	}
	return code, nil
}

// ValidateOTP checks a code without consuming it. Expired codes and codes
// that ran out of attempts are removed.
func (s *TokenService) ValidateOTP(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateOTP(ctx, HashToken(code))
}

func (s *TokenService) validateOTP(ctx context.Context, key string) (string, error) {
	t, ok := s.get(ctx, key)
	if !ok {
		return "", ErrOTPInvalid
	}
	if t.Type != TokenTypeOTP {
		return "", ErrTokenType
	}
	if s.Now().After(t.Expiry) {
		s.remove(ctx, key)
		return "", ErrOTPExpired
	}
	if t.Attempts >= s.MaxAttempts {
		s.remove(ctx, key)
		return "", ErrOTPAttempts
	}
	return t.Department, nil
}

// VerifyOTP validates code for dept and counts a failed attempt when the
// code is rejected. A code issued for another department is refused without
// spending an attempt.
func (s *TokenService) VerifyOTP(ctx context.Context, code, dept string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := HashToken(code)
	owner, err := s.validateOTP(ctx, key)
	if err != nil {
		s.incrementAttempts(ctx, key)
		return err
	}
	if owner != dept {
		return ErrOTPWrongDept
	}
	return nil
}

func (s *TokenService) incrementAttempts(ctx context.Context, key string) {
	t, ok := s.get(ctx, key)
	if !ok {
		return
	}
	t.Attempts++
	if err := s.write(ctx, key, t); err != nil {
		slog.Warn("otp attempt not recorded", "err", err)
	}
}

// Consume removes a token or code after a successful reset.
func (s *TokenService) Consume(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Delete(ctx, docstore.CollectionTokens, HashToken(token))
}

// CleanupExpired removes every expired token and returns how many went.
func (s *TokenService) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.Store.List(ctx, docstore.CollectionTokens)
	if err != nil {
		if errors.Is(err, docstore.ErrCorrupt) {
			return 0, nil
		}
		return 0, err
	}
	now := s.Now()
	removed := 0
	for key, raw := range docs {
		var t Token
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		if now.After(t.Expiry) {
			if err := s.Store.Delete(ctx, docstore.CollectionTokens, key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *TokenService) put(ctx context.Context, key, kind, dept string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	return s.write(ctx, key, Token{
		Type:       kind,
		Department: dept,
		Expiry:     now.Add(ttl),
		Created:    now,
	})
}

func (s *TokenService) write(ctx context.Context, key string, t Token) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, docstore.CollectionTokens, key, payload)
}

func (s *TokenService) get(ctx context.Context, key string) (Token, bool) {
	raw, err := s.Store.Get(ctx, docstore.CollectionTokens, key)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			slog.Warn("token store unreadable", "err", err)
		}
		return Token{}, false
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		slog.Warn("token document corrupt", "err", err)
		return Token{}, false
	}
	return t, true
}

func (s *TokenService) remove(ctx context.Context, key string) {
	if err := s.Store.Delete(ctx, docstore.CollectionTokens, key); err != nil {
		slog.Warn("token not removed", "err", err)
	}
}
