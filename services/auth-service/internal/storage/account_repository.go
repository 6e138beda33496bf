package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
)

// Account is a therapist login. Patients authenticate through the
// portal service instead and never get a row here.
type Account struct {
	ID           string
	Email        string
	Name         string
	Specialty    string
	PasswordHash string
	Role         string
}

type AccountRepository struct {
	pool *db.Pool
}

func NewAccountRepository(pool *db.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) CreateTx(ctx context.Context, tx pgx.Tx, acct Account) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO therapist_accounts (id, email, name, specialty, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.ID, acct.Email, acct.Name, acct.Specialty, acct.PasswordHash, acct.Role)
	return err
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	var acct Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, COALESCE(specialty, ''), password_hash, role
		FROM therapist_accounts
		WHERE email = $1
	`, email).Scan(&acct.ID, &acct.Email, &acct.Name, &acct.Specialty, &acct.PasswordHash, &acct.Role)
	if err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (Account, error) {
	var acct Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, COALESCE(specialty, ''), password_hash, role
		FROM therapist_accounts
		WHERE id = $1
	`, id).Scan(&acct.ID, &acct.Email, &acct.Name, &acct.Specialty, &acct.PasswordHash, &acct.Role)
	if err != nil {
		return Account{}, err
	}
	return acct, nil
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
