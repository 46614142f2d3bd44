package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/fintrack/internal/domain/account"
	"github.com/jackc/pgx/v5"
)

var _ account.Repo = (*AccountRepo)(nil)

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const (
	qAccountInsert = `
INSERT INTO accounts (email, password_hash, role)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, role, created_at;`

	qAccountByEmail = `
SELECT id, email, password_hash, role, created_at
FROM accounts
WHERE email = $1;`

	qAccountList = `
SELECT id, email, password_hash, role, created_at
FROM accounts
ORDER BY id;`
)

func (r *AccountRepo) Create(ctx context.Context, a *account.Account) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	role := a.Role
	if role == "" {
		role = account.RoleUser
	}
	row := r.db.execQueryer(ctx).QueryRow(ctx, qAccountInsert, a.Email, a.PasswordHash, string(role))
	if err := scanAccount(row, a); err != nil {
		if isUniqueViolation(err) {
			return account.ErrEmailExists
		}
		return fmt.Errorf("account insert: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a account.Account
	if err := scanAccount(r.db.execQueryer(ctx).QueryRow(ctx, qAccountByEmail, email), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("account by email: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]*account.Account, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qAccountList)
	if err != nil {
		return nil, fmt.Errorf("account list: %w", err)
	}
	defer rows.Close()

	var out []*account.Account
	for rows.Next() {
		var a account.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, fmt.Errorf("account scan: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row, out *account.Account) error {
	var role string
	if err := row.Scan(&out.ID, &out.Email, &out.PasswordHash, &role, &out.CreatedAt); err != nil {
		return err
	}
	out.Role = account.Role(role)
	return nil
}
