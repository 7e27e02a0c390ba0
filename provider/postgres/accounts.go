package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	userguard "github.com/identware/userguard"
)

const uniqueViolation = "23505"

// AccountProvider is the sqlx implementation of userguard.AccountProvider.
type AccountProvider struct {
	db *sqlx.DB
}

// NewAccountProvider wraps an open connection pool.
func NewAccountProvider(db *sqlx.DB) *AccountProvider {
	return &AccountProvider{db: db}
}

type accountRow struct {
	ID          int64          `db:"id"`
	Identity    string         `db:"identity"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Mobile      sql.NullString `db:"mobile"`
	Avatar      sql.NullString `db:"avatar"`
	Status      uint8          `db:"status"`
	TimeCreated sql.NullTime   `db:"time_created"`
}

func (r accountRow) toDomain() userguard.Account {
	a := userguard.Account{
		ID:       r.ID,
		Identity: r.Identity,
		Name:     r.Name,
		Email:    r.Email,
		Mobile:   r.Mobile.String,
		Avatar:   r.Avatar.String,
		Status:   userguard.AccountStatus(r.Status),
	}
	if r.TimeCreated.Valid {
		a.TimeCreated = r.TimeCreated.Time.UTC()
	}
	return a
}

const accountColumns = `id, identity, name, email, mobile, avatar, status, time_created`

func (p *AccountProvider) AccountByID(ctx context.Context, id int64) (userguard.Account, error) {
	return p.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (p *AccountProvider) AccountByIdentity(ctx context.Context, identity string) (userguard.Account, error) {
	return p.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE identity = $1`, identity)
}

func (p *AccountProvider) AccountByEmail(ctx context.Context, email string) (userguard.Account, error) {
	return p.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (p *AccountProvider) AccountByMobile(ctx context.Context, mobile string) (userguard.Account, error) {
	return p.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mobile = $1`, mobile)
}

func (p *AccountProvider) one(ctx context.Context, query string, arg any) (userguard.Account, error) {
	var row accountRow
	if err := p.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return userguard.Account{}, userguard.ErrAccountUnknown
		}
		return userguard.Account{}, fmt.Errorf("query account: %w", err)
	}
	return row.toDomain(), nil
}

func (p *AccountProvider) CredentialHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := p.db.GetContext(ctx, &hash, `SELECT credential FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", userguard.ErrAccountUnknown
		}
		return "", fmt.Errorf("query credential: %w", err)
	}
	return hash, nil
}

func (p *AccountProvider) CreateAccount(ctx context.Context, in userguard.CreateAccountInput) (userguard.Account, error) {
	var row accountRow
	err := p.db.GetContext(ctx, &row, `
		INSERT INTO accounts (identity, name, email, mobile, credential, status, time_created)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NOW())
		RETURNING `+accountColumns,
		in.Identity, in.Name, in.Email, in.Mobile, in.CredentialHash, in.Status,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return userguard.Account{}, userguard.ErrIdentityExists
		}
		return userguard.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return row.toDomain(), nil
}

func (p *AccountProvider) UpdateAccount(ctx context.Context, id int64, in userguard.UpdateAccountInput) (userguard.Account, error) {
	var row accountRow
	err := p.db.GetContext(ctx, &row, `
		UPDATE accounts SET
			name   = COALESCE($2, name),
			email  = COALESCE($3, email),
			mobile = COALESCE($4, mobile),
			avatar = COALESCE($5, avatar)
		WHERE id = $1
		RETURNING `+accountColumns,
		id, in.Name, in.Email, in.Mobile, in.Avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return userguard.Account{}, userguard.ErrAccountUnknown
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return userguard.Account{}, userguard.ErrIdentityExists
		}
		return userguard.Account{}, fmt.Errorf("update account: %w", err)
	}
	return row.toDomain(), nil
}

func (p *AccountProvider) UpdateStatus(ctx context.Context, id int64, status userguard.AccountStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE accounts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireRow(res)
}

func (p *AccountProvider) UpdateCredential(ctx context.Context, id int64, hash string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE accounts SET credential = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return requireRow(res)
}

func (p *AccountProvider) IdentityTaken(ctx context.Context, identity string, excludeID int64) (bool, error) {
	return p.taken(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE identity = $1 AND id <> $2)`, identity, excludeID)
}

func (p *AccountProvider) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return p.taken(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1 AND id <> $2)`, email, excludeID)
}

func (p *AccountProvider) MobileTaken(ctx context.Context, mobile string, excludeID int64) (bool, error) {
	return p.taken(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE mobile = $1 AND id <> $2)`, mobile, excludeID)
}

func (p *AccountProvider) taken(ctx context.Context, query, value string, excludeID int64) (bool, error) {
	var exists bool
	if err := p.db.GetContext(ctx, &exists, query, value, excludeID); err != nil {
		return false, fmt.Errorf("uniqueness query: %w", err)
	}
	return exists, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return userguard.ErrAccountUnknown
	}
	return nil
}
