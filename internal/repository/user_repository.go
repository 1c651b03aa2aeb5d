package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// querier is satisfied by both *sql.DB and *sql.Tx so authority loading can
// run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Create inserts a user with the given authority tags and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, password, name string, cost int, authorities []model.Authority) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO usr (username, password, name, status, created_at) VALUES (?,?,?,?,?)",
		username, hash, name, model.UserStatusActive, time.Now().UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, a := range authorities {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_authority (user_id, authority) VALUES (?,?)",
			id, string(a)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByUsername fetches a user by normalized username, authorities included.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.findOne(ctx,
		"SELECT id, username, password, name, status, created_at FROM usr WHERE username = ? LIMIT 1",
		username)
}

// FindByID fetches a user by id, authorities included.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	return r.findOne(ctx,
		"SELECT id, username, password, name, status, created_at FROM usr WHERE id = ? LIMIT 1",
		id)
}

// List returns one page of users ordered by id, plus the total row count.
func (r *UserRepo) List(ctx context.Context, page, size int) ([]model.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM usr").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, username, password, name, status, created_at FROM usr ORDER BY id LIMIT ? OFFSET ?",
		size, page*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var status string
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &status, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		u.Status = model.UserStatus(status)
		if u.Authorities, err = authoritiesFor(ctx, r.DB, u.ID); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ChangeStatusByUsername flips the account status of the named user. Updating
// a nonexistent username is a no-op, which the token service relies on when
// it suspends a claimed identity that may not exist.
func (r *UserRepo) ChangeStatusByUsername(ctx context.Context, username string, status model.UserStatus) error {
	username = strings.ToLower(strings.TrimSpace(username))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE usr SET status = ? WHERE username = ?", string(status), username)
	return err
}

// ChangeStatusByID flips the account status of the user with the given id.
func (r *UserRepo) ChangeStatusByID(ctx context.Context, id uint64, status model.UserStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE usr SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account or, if the username already
// exists, grants it the admin authority. Called once at startup.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, password, name string, cost int) error {
	u, err := r.FindByUsername(ctx, username)
	if err == sql.ErrNoRows {
		_, err := r.Create(ctx, username, password, name, cost,
			[]model.Authority{model.AuthorityUser, model.AuthorityAdmin})
		return err
	}
	if err != nil {
		return err
	}
	if model.HasAuthority(u.Authorities, model.AuthorityAdmin) {
		return nil
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO user_authority (user_id, authority) VALUES (?,?)",
		u.ID, string(model.AuthorityAdmin))
	return err
}

func (r *UserRepo) findOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	var status string
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &status, &u.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Status = model.UserStatus(status)
	if u.Authorities, err = authoritiesFor(ctx, r.DB, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// authoritiesFor loads the authority tags of a user. Unknown tags in the
// table are skipped rather than failing the whole read.
func authoritiesFor(ctx context.Context, q querier, userID uint64) ([]model.Authority, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT authority FROM user_authority WHERE user_id = ? ORDER BY authority", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Authority
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if a, ok := model.ParseAuthority(raw); ok {
			out = append(out, a)
		}
	}
	return out, rows.Err()
}
