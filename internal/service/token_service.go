// Package service implements the token lifecycle: issuance of access/refresh
// pairs at login, single-use rotation of refresh tokens, and invalidation.
// A refresh token makes exactly one transition, from redeemable to spent,
// when it is rotated; every other failed presentation ends in deletion of the
// affected records, never in a state change.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/task-management-api/internal/auth"
	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/queue"
)

// ErrInvalidRefreshToken is the single external signal for every refresh
// failure: bad signature, expired assertion, unknown id, expired record,
// suspended owner, spent record, owner mismatch. Collapsing them hides which
// check failed from the caller; the side effects still differ.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenPair is what login and refresh return to the client. ExpireIn is the
// access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpireIn     int64  `json:"expireIn"`
}

// TokenService orchestrates issuance, rotation and invalidation over the
// refresh-token store. It is the only component with business rules; the
// signer is pure and the store is plumbing.
type TokenService struct {
	tokens     RefreshTokenStore
	users      UserDirectory
	signer     *auth.Signer
	events     SecurityEventSink // optional, may be nil
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(tokens RefreshTokenStore, users UserDirectory, signer *auth.Signer,
	events SecurityEventSink, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		tokens:     tokens,
		users:      users,
		signer:     signer,
		events:     events,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a fresh refresh-token record for user and returns it together
// with a newly signed access token. The caller has already authenticated the
// user; Issue does not re-check credentials or status.
func (s *TokenService) Issue(ctx context.Context, user model.User) (TokenPair, error) {
	now := s.now()
	record := &model.RefreshToken{
		Owner:    user,
		IssuedAt: now,
		ExpireAt: now.Add(s.refreshTTL),
	}
	err := s.tokens.Atomic(ctx, func(ops RefreshTokenOps) error {
		return ops.Create(ctx, record)
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return s.pair(record, now)
}

// Refresh redeems a refresh assertion for a new access/refresh pair, marking
// the old record spent. Presenting an already-spent record is a replay: the
// entire lineage issued downstream of it is revoked before the call fails.
// The lookup and the link run in one transaction so concurrent redemptions of
// the same token cannot both succeed.
func (s *TokenService) Refresh(ctx context.Context, assertion string) (TokenPair, error) {
	id, err := s.signer.VerifyRefreshAssertion(assertion)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	now := s.now()
	var (
		pair     TokenPair
		replayed *model.RefreshToken
		opErr    error
	)
	err = s.tokens.Atomic(ctx, func(ops RefreshTokenOps) error {
		stored, err := ops.FindLiveByID(ctx, id, now)
		if err != nil {
			return err
		}
		if stored == nil {
			opErr = ErrInvalidRefreshToken
			return nil
		}
		if stored.Spent() {
			// Revoke every credential issued downstream of the compromise
			// point. The presented record itself stays in place.
			if err := ops.DeleteChain(ctx, *stored.Next); err != nil {
				return err
			}
			replayed = stored
			opErr = ErrInvalidRefreshToken
			return nil // containment must commit even though the caller fails
		}
		next := &model.RefreshToken{
			Owner:    stored.Owner,
			IssuedAt: now,
			ExpireAt: now.Add(s.refreshTTL),
		}
		if err := ops.Create(ctx, next); err != nil {
			return err
		}
		if err := ops.Link(ctx, stored.ID, next.ID); err != nil {
			return err
		}
		pair, err = s.pair(next, now)
		return err
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh rotation: %w", err)
	}
	if replayed != nil {
		s.emit(ctx, queue.SecurityEvent{
			Kind:       queue.EventReplayDetected,
			Username:   replayed.Owner.Username,
			TokenID:    replayed.ID.String(),
			DetectedAt: now.Format(time.RFC3339),
		})
	}
	if opErr != nil {
		return TokenPair{}, opErr
	}
	return pair, nil
}

// Invalidate deletes the chain of the presented refresh token (logout). The
// record is looked up without expiry or status filters so logout works on a
// token nearing expiry. When the record's owner does not match claimedOwner,
// the claimed username's account is suspended and the whole chain rooted at
// the presented record is deleted; note it is the claimed identity that gets
// suspended, not the record's stored owner.
func (s *TokenService) Invalidate(ctx context.Context, assertion, claimedOwner string) error {
	id, err := s.signer.VerifyRefreshAssertion(assertion)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	now := s.now()
	var (
		suspended bool
		replayed  *model.RefreshToken
		opErr     error
	)
	err = s.tokens.Atomic(ctx, func(ops RefreshTokenOps) error {
		stored, err := ops.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			opErr = ErrInvalidRefreshToken
			return nil
		}
		if stored.Owner.Username != claimedOwner {
			if err := s.users.ChangeStatusByUsername(ctx, claimedOwner, model.UserStatusSuspended); err != nil {
				return err
			}
			if err := ops.DeleteChain(ctx, stored.ID); err != nil {
				return err
			}
			suspended = true
			opErr = ErrInvalidRefreshToken
			return nil
		}
		if stored.Spent() {
			if err := ops.DeleteChain(ctx, *stored.Next); err != nil {
				return err
			}
			replayed = stored
			opErr = ErrInvalidRefreshToken
			return nil
		}
		return ops.DeleteChain(ctx, stored.ID)
	})
	if err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	if suspended {
		s.emit(ctx, queue.SecurityEvent{
			Kind:       queue.EventAccountSuspended,
			Username:   claimedOwner,
			TokenID:    id.String(),
			DetectedAt: now.Format(time.RFC3339),
		})
	}
	if replayed != nil {
		s.emit(ctx, queue.SecurityEvent{
			Kind:       queue.EventReplayDetected,
			Username:   replayed.Owner.Username,
			TokenID:    replayed.ID.String(),
			DetectedAt: now.Format(time.RFC3339),
		})
	}
	return opErr
}

// pair signs an access token and a refresh assertion over the given record.
func (s *TokenService) pair(record *model.RefreshToken, now time.Time) (TokenPair, error) {
	access, err := s.signer.SignAccess(record.Owner.Username, record.Owner.Authorities, now, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.SignRefreshAssertion(record.Owner.Username, record.ID, record.IssuedAt, record.ExpireAt)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh assertion: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpireIn:     int64(s.accessTTL / time.Second),
	}, nil
}

func (s *TokenService) emit(ctx context.Context, ev queue.SecurityEvent) {
	log.Printf("token-service: %s user=%s token=%s", ev.Kind, ev.Username, ev.TokenID)
	if s.events != nil {
		s.events.Publish(ctx, ev)
	}
}
