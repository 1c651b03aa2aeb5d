// Package auth implements stateless HMAC signing and verification of the two
// token kinds the service issues: short-lived access tokens and long-lived
// refresh assertions. An access token is self-contained and fully verified
// here; a refresh assertion only proves that its `jti` (the persisted record
// id) was not tampered with — the database row, not the signature, decides
// whether the refresh token is still redeemable.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/task-management-api/internal/model"
)

// ErrTokenExpired and ErrTokenInvalid classify verification failures. Callers
// in the refresh/invalidate flows collapse both into a single generic error;
// the request gate swallows them entirely.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// accessClaims is the payload of an access token: registered sub/iat/exp plus
// the authority tags the user held at issuance.
type accessClaims struct {
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}

// refreshClaims is the payload of a refresh assertion. The record id travels
// in the registered `jti` claim.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// Signer signs and verifies tokens with HMAC-SHA-512 over a single shared
// secret. All methods are safe for concurrent use.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// SignAccess produces a signed access token for subject with the given
// authority set, valid for ttl from issuedAt.
func (s *Signer) SignAccess(subject string, authorities []model.Authority, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := accessClaims{
		Authorities: model.AuthorityClaims(authorities),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
}

// VerifyAccess checks signature and expiry and returns the subject and the
// decoded authority set. A claim naming an unknown authority fails
// verification: the tag set is closed and an unrecognized tag means the token
// was not produced by this service.
func (s *Signer) VerifyAccess(token string) (string, []model.Authority, error) {
	var claims accessClaims
	if err := s.parse(token, &claims); err != nil {
		return "", nil, err
	}
	authorities := make([]model.Authority, 0, len(claims.Authorities))
	for _, raw := range claims.Authorities {
		a, ok := model.ParseAuthority(raw)
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown authority %q", ErrTokenInvalid, raw)
		}
		authorities = append(authorities, a)
	}
	return claims.Subject, authorities, nil
}

// SignRefreshAssertion wraps a persisted refresh-token record into its wire
// form: a signed pointer carrying the owner's username as subject and the
// record id as `jti`. Expiry mirrors the record's expire_at.
func (s *Signer) SignRefreshAssertion(subject string, tokenID uuid.UUID, issuedAt, expireAt time.Time) (string, error) {
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        tokenID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
}

// VerifyRefreshAssertion checks signature and expiry and returns the record
// id from the `jti` claim.
func (s *Signer) VerifyRefreshAssertion(token string) (uuid.UUID, error) {
	var claims refreshClaims
	if err := s.parse(token, &claims); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad jti: %v", ErrTokenInvalid, err)
	}
	return id, nil
}

func (s *Signer) parse(token string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but the method we issue.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	switch {
	case err == nil && tok.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
