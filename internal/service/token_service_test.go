package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-management-api/internal/auth"
	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/queue"
)

// fakeStore is an in-memory RefreshTokenStore. Atomic serializes callers on
// one mutex, which makes the exactly-one-winner property of concurrent
// redemptions observable in tests.
type fakeStore struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*model.RefreshToken
	atomicCalls int
	lookups     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[uuid.UUID]*model.RefreshToken{}}
}

func (f *fakeStore) Atomic(ctx context.Context, fn func(RefreshTokenOps) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atomicCalls++
	return fn(f)
}

func (f *fakeStore) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	cp := *token
	f.records[cp.ID] = &cp
	return nil
}

func (f *fakeStore) FindLiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*model.RefreshToken, error) {
	f.lookups++
	rec, ok := f.records[id]
	if !ok || !rec.ExpireAt.After(now) || rec.Owner.Status != model.UserStatusActive {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (*model.RefreshToken, error) {
	f.lookups++
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) Link(ctx context.Context, oldID, nextID uuid.UUID) error {
	rec := f.records[oldID]
	rec.Next = &nextID
	return nil
}

func (f *fakeStore) DeleteChain(ctx context.Context, root uuid.UUID) error {
	id := root
	for {
		rec, ok := f.records[id]
		if !ok {
			return nil
		}
		delete(f.records, id)
		if rec.Next == nil {
			return nil
		}
		id = *rec.Next
	}
}

type fakeDirectory struct {
	mu        sync.Mutex
	suspended []string
}

func (f *fakeDirectory) ChangeStatusByUsername(ctx context.Context, username string, status model.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == model.UserStatusSuspended {
		f.suspended = append(f.suspended, username)
	}
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []queue.SecurityEvent
}

func (f *fakeSink) Publish(ctx context.Context, ev queue.SecurityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeSink) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Kind
	}
	return out
}

type fixture struct {
	svc    *TokenService
	store  *fakeStore
	dir    *fakeDirectory
	sink   *fakeSink
	signer *auth.Signer
	user   model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer := auth.NewSigner("s")
	store := newFakeStore()
	dir := &fakeDirectory{}
	sink := &fakeSink{}
	return &fixture{
		svc:    NewTokenService(store, dir, signer, sink, 10*time.Minute, 72*time.Hour),
		store:  store,
		dir:    dir,
		sink:   sink,
		signer: signer,
		user: model.User{
			ID:          1,
			Username:    "token_test_user",
			Name:        "User for token test",
			Status:      model.UserStatusActive,
			Authorities: []model.Authority{model.AuthorityUser},
		},
	}
}

// recordID unwraps the refresh assertion back to the stored record id.
func (fx *fixture) recordID(t *testing.T, assertion string) uuid.UUID {
	t.Helper()
	id, err := fx.signer.VerifyRefreshAssertion(assertion)
	require.NoError(t, err)
	return id
}

func TestIssue(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	assert.Equal(t, int64(600), pair.ExpireIn)

	subject, authorities, err := fx.signer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fx.user.Username, subject)
	assert.Equal(t, fx.user.Authorities, authorities)

	rec, ok := fx.store.records[fx.recordID(t, pair.RefreshToken)]
	require.True(t, ok, "refresh record must be persisted")
	assert.Equal(t, fx.user.Username, rec.Owner.Username)
	assert.Nil(t, rec.Next, "fresh record must be unspent")
}

func TestRefresh_RotatesExactlyOnce(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	r1 := fx.recordID(t, first.RefreshToken)

	second, err := fx.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	r2 := fx.recordID(t, second.RefreshToken)

	// The old record is spent and points at the new one.
	require.NotNil(t, fx.store.records[r1].Next)
	assert.Equal(t, r2, *fx.store.records[r1].Next)

	// Replaying the spent token fails and revokes the first redemption's
	// issue as well.
	_, err = fx.svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, ok := fx.store.records[r2]
	assert.False(t, ok, "downstream record must be deleted on replay")

	_, err = fx.svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.Contains(t, fx.sink.kinds(), queue.EventReplayDetected)
}

func TestRefresh_SuspendedOwner(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	id := fx.recordID(t, pair.RefreshToken)

	fx.store.records[id].Owner.Status = model.UserStatusSuspended

	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredRecord(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	id := fx.recordID(t, pair.RefreshToken)

	// Record expired even though the signed assertion has not.
	fx.store.records[id].ExpireAt = time.Now().UTC().Add(-time.Minute)

	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_BadSignatureTouchesNothing(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	// Structurally valid assertion signed with a different secret.
	other := auth.NewSigner("not-the-secret")
	now := time.Now().UTC()
	forged, err := other.SignRefreshAssertion(fx.user.Username, uuid.New(), now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = fx.svc.Refresh(ctx, forged)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Zero(t, fx.store.atomicCalls, "store must not be touched")

	err = fx.svc.Invalidate(ctx, forged, fx.user.Username)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Zero(t, fx.store.atomicCalls, "store must not be touched")
}

func TestInvalidate_OwnLiveToken(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	id := fx.recordID(t, pair.RefreshToken)

	require.NoError(t, fx.svc.Invalidate(ctx, pair.RefreshToken, fx.user.Username))
	_, ok := fx.store.records[id]
	assert.False(t, ok, "record must be deleted")

	// The id is gone; both flows now fail.
	err = fx.svc.Invalidate(ctx, pair.RefreshToken, fx.user.Username)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestInvalidate_OwnerMismatchSuspendsClaimed(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	id := fx.recordID(t, pair.RefreshToken)

	err = fx.svc.Invalidate(ctx, pair.RefreshToken, "mallory")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The claimed username is suspended, not the record's owner, and the
	// presented chain is gone.
	assert.Equal(t, []string{"mallory"}, fx.dir.suspended)
	_, ok := fx.store.records[id]
	assert.False(t, ok, "chain rooted at the presented record must be deleted")
	assert.Contains(t, fx.sink.kinds(), queue.EventAccountSuspended)
}

func TestInvalidate_SpentTokenDeletesLineage(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)
	second, err := fx.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	r1 := fx.recordID(t, first.RefreshToken)
	r2 := fx.recordID(t, second.RefreshToken)

	err = fx.svc.Invalidate(ctx, first.RefreshToken, fx.user.Username)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Forward lineage deleted, presented record untouched.
	_, ok := fx.store.records[r2]
	assert.False(t, ok)
	_, ok = fx.store.records[r1]
	assert.True(t, ok)
}

func TestRefresh_ConcurrentRedemptionsOneWinner(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	pair, err := fx.svc.Issue(ctx, fx.user)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInvalidRefreshToken)
		}
	}
	assert.Equal(t, 1, wins, "exactly one redemption must succeed")
}
