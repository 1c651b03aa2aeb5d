package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/service"
)

// TokenRepo persists refresh-token records and their rotation chain in the
// `refresh_token` table. All reads and writes go through Atomic so the
// lookup-to-mutation step of a redemption is a single transaction; looked-up
// rows are locked with SELECT ... FOR UPDATE, which is what forces the loser
// of two concurrent redemptions to observe the winner's link.
//
// Expired rows that were never redeemed or invalidated are left in place;
// there is no housekeeping job here.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

var _ service.RefreshTokenStore = (*TokenRepo)(nil)

// Atomic runs fn inside one database transaction. An error from fn rolls the
// transaction back; otherwise it commits.
func (r *TokenRepo) Atomic(ctx context.Context, fn func(ops service.RefreshTokenOps) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token tx: %w", err)
	}
	if err := fn(&tokenOps{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit token tx: %w", err)
	}
	return nil
}

// tokenOps implements service.RefreshTokenOps over an open transaction.
type tokenOps struct{ tx *sql.Tx }

// Create inserts a new record and assigns its id.
func (o *tokenOps) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	_, err := o.tx.ExecContext(ctx,
		"INSERT INTO refresh_token (id, user_id, issued_at, expire_at) VALUES (?,?,?,?)",
		token.ID.String(), token.Owner.ID, token.IssuedAt, token.ExpireAt)
	return err
}

// FindLiveByID loads a record by id requiring it to be unexpired and its
// owner ACTIVE. The row is locked until the transaction ends.
func (o *tokenOps) FindLiveByID(ctx context.Context, id uuid.UUID, now time.Time) (*model.RefreshToken, error) {
	return o.scanToken(ctx,
		`SELECT t.id, t.issued_at, t.expire_at, t.next,
		        u.id, u.username, u.name, u.status
		 FROM refresh_token t
		 JOIN usr u ON u.id = t.user_id
		 WHERE t.id = ? AND t.expire_at > ? AND u.status = ?
		 FOR UPDATE`,
		id.String(), now, model.UserStatusActive)
}

// FindByID loads a record by id with no expiry or status filter. Invalidation
// must work even on a token nearing expiry.
func (o *tokenOps) FindByID(ctx context.Context, id uuid.UUID) (*model.RefreshToken, error) {
	return o.scanToken(ctx,
		`SELECT t.id, t.issued_at, t.expire_at, t.next,
		        u.id, u.username, u.name, u.status
		 FROM refresh_token t
		 JOIN usr u ON u.id = t.user_id
		 WHERE t.id = ?
		 FOR UPDATE`,
		id.String())
}

// Link marks oldID as spent by pointing its next column at nextID. The
// `next IS NULL` guard keeps the pointer a one-way, set-once transition even
// if a caller bypasses the row lock.
func (o *tokenOps) Link(ctx context.Context, oldID, nextID uuid.UUID) error {
	res, err := o.tx.ExecContext(ctx,
		"UPDATE refresh_token SET next = ? WHERE id = ? AND next IS NULL",
		nextID.String(), oldID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("refresh token %s already rotated", oldID)
	}
	return nil
}

// DeleteChain deletes root and every record reachable from it through next
// pointers. The walk is iterative; a session rotated thousands of times must
// not blow the stack.
func (o *tokenOps) DeleteChain(ctx context.Context, root uuid.UUID) error {
	id := root.String()
	for {
		var next sql.NullString
		err := o.tx.QueryRowContext(ctx,
			"SELECT next FROM refresh_token WHERE id = ? FOR UPDATE", id).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := o.tx.ExecContext(ctx, "DELETE FROM refresh_token WHERE id = ?", id); err != nil {
			return err
		}
		if !next.Valid {
			return nil
		}
		id = next.String
	}
}

func (o *tokenOps) scanToken(ctx context.Context, query string, args ...any) (*model.RefreshToken, error) {
	var (
		t      model.RefreshToken
		rawID  string
		next   sql.NullString
		status string
	)
	err := o.tx.QueryRowContext(ctx, query, args...).Scan(
		&rawID, &t.IssuedAt, &t.ExpireAt, &next,
		&t.Owner.ID, &t.Owner.Username, &t.Owner.Name, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("corrupt refresh_token.id %q: %w", rawID, err)
	}
	if next.Valid {
		n, err := uuid.Parse(next.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt refresh_token.next %q: %w", next.String, err)
		}
		t.Next = &n
	}
	t.Owner.Status = model.UserStatus(status)
	if t.Owner.Authorities, err = authoritiesFor(ctx, o.tx, t.Owner.ID); err != nil {
		return nil, err
	}
	return &t, nil
}
