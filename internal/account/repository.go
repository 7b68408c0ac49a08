package account

import (
	"context"
	"database/sql"
	"errors"

	"tutorslot/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `id, name, email, password_hash, role, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash, role string) (*Account, error) {
	var acct Account
	err := r.db.GetContext(ctx, &acct, `
		INSERT INTO accounts (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		name, email, passwordHash, role,
	)
	if err != nil {
		return nil, err
	}

	return &acct, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var acct Account
	err := r.db.GetContext(ctx, &acct,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &acct, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var acct Account
	err := r.db.GetContext(ctx, &acct,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &acct, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email)
}
