package handoff

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"arcos-chat/internal/models"
)

var (
	ErrInvalid         = errors.New("invalid handoff token")
	ErrExpired         = fmt.Errorf("%w: expired", ErrInvalid)
	ErrReplayed        = fmt.Errorf("%w: already used", ErrInvalid)
	ErrSessionMismatch = fmt.Errorf("%w: issued to another session", ErrInvalid)
)

const keyInfo = "arcos-chat handoff v1"

type claims struct {
	Question   string `json:"q"`
	Dispatch   bool   `json:"d,omitempty"`
	CurrentURL string `json:"url,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and redeems the short-lived token that carries a question
// from the hero page to the answer page. A token is bound to the session
// that requested it and can be redeemed once.
type Signer struct {
	key    []byte
	ttl    time.Duration
	ledger Ledger
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration, ledger Ledger) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("handoff secret is empty")
	}
	if ledger == nil {
		return nil, errors.New("handoff ledger is nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive handoff key: %w", err)
	}

	return &Signer{key: key, ttl: ttl, ledger: ledger, now: time.Now}, nil
}

// Issue signs h. The question must not be blank.
func (s *Signer) Issue(h models.Handoff) (string, error) {
	q := strings.TrimSpace(h.Question)
	if q == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalid)
	}

	now := s.now()
	c := claims{
		Question:   q,
		Dispatch:   h.Dispatch,
		CurrentURL: h.CurrentURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   h.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.key)
}

// Consume verifies the token, checks it was issued to sessionID and burns it.
func (s *Signer) Consume(ctx context.Context, token, sessionID string) (*models.Handoff, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Subject != sessionID {
		return nil, ErrSessionMismatch
	}
	if c.ID == "" || strings.TrimSpace(c.Question) == "" {
		return nil, ErrInvalid
	}

	remaining := c.ExpiresAt.Time.Sub(s.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	fresh, err := s.ledger.Claim(ctx, c.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to record handoff: %w", err)
	}
	if !fresh {
		return nil, ErrReplayed
	}

	return &models.Handoff{
		Question:   c.Question,
		Dispatch:   c.Dispatch,
		SessionID:  c.Subject,
		CurrentURL: c.CurrentURL,
	}, nil
}
