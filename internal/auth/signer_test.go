package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-management-api/internal/model"
)

func TestSignAndVerifyAccess(t *testing.T) {
	t.Parallel()

	s := NewSigner("super-secret")
	authorities := []model.Authority{model.AuthorityUser, model.AuthorityAdmin}

	tok, err := s.SignAccess("alice", authorities, time.Now().UTC(), 10*time.Minute)
	require.NoError(t, err)

	subject, got, err := s.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
	assert.Equal(t, authorities, got)
}

func TestVerifyAccess_Expired(t *testing.T) {
	t.Parallel()

	s := NewSigner("super-secret")
	tok, err := s.SignAccess("alice", []model.Authority{model.AuthorityUser},
		time.Now().UTC().Add(-time.Hour), 10*time.Minute)
	require.NoError(t, err)

	_, _, err = s.VerifyAccess(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSigner("right-secret").SignAccess("alice",
		[]model.Authority{model.AuthorityUser}, time.Now().UTC(), 10*time.Minute)
	require.NoError(t, err)

	_, _, err = NewSigner("wrong-secret").VerifyAccess(tok)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccess_Malformed(t *testing.T) {
	t.Parallel()

	_, _, err := NewSigner("k").VerifyAccess("not.a.jwt")
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSignAndVerifyRefreshAssertion(t *testing.T) {
	t.Parallel()

	s := NewSigner("super-secret")
	id := uuid.New()
	now := time.Now().UTC()

	tok, err := s.SignRefreshAssertion("alice", id, now, now.Add(72*time.Hour))
	require.NoError(t, err)

	got, err := s.VerifyRefreshAssertion(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifyRefreshAssertion_Expired(t *testing.T) {
	t.Parallel()

	s := NewSigner("super-secret")
	now := time.Now().UTC()
	tok, err := s.SignRefreshAssertion("alice", uuid.New(), now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = s.VerifyRefreshAssertion(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRefreshAssertion_Tampered(t *testing.T) {
	t.Parallel()

	s := NewSigner("super-secret")
	now := time.Now().UTC()
	tok, err := s.SignRefreshAssertion("alice", uuid.New(), now, now.Add(time.Hour))
	require.NoError(t, err)

	// Flip a character in the payload segment.
	tampered := []byte(tok)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}

	_, err = s.VerifyRefreshAssertion(string(tampered))
	require.ErrorIs(t, err, ErrTokenInvalid)
}
