package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendaflow/vendaflow/internal/domain/account"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/postgres"
	"github.com/vendaflow/vendaflow/internal/types"
)

type accountRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db postgres.IClient, logger *logger.Logger) account.Repository {
	return &accountRepository{db: db, logger: logger}
}

type accountRow struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Email             string    `db:"email"`
	Document          string    `db:"document"`
	Phone             string    `db:"phone"`
	PasswordHash      string    `db:"password_hash"`
	ReferralCode      string    `db:"referral_code"`
	ReferrerID        *string   `db:"referrer_id"`
	GatewayCustomerID string    `db:"gateway_customer_id"`
	Adherent          bool      `db:"adherent"`
	Status            string    `db:"status"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
	CreatedBy         string    `db:"created_by"`
	UpdatedBy         string    `db:"updated_by"`
}

func (r accountRow) toDomain() *account.Account {
	return &account.Account{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Document:          r.Document,
		Phone:             r.Phone,
		PasswordHash:      r.PasswordHash,
		ReferralCode:      r.ReferralCode,
		ReferrerID:        r.ReferrerID,
		GatewayCustomerID: r.GatewayCustomerID,
		Adherent:          r.Adherent,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromAccount(a *account.Account) accountRow {
	return accountRow{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		Document:          a.Document,
		Phone:             a.Phone,
		PasswordHash:      a.PasswordHash,
		ReferralCode:      a.ReferralCode,
		ReferrerID:        a.ReferrerID,
		GatewayCustomerID: a.GatewayCustomerID,
		Adherent:          a.Adherent,
		Status:            string(a.Status),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		CreatedBy:         a.CreatedBy,
		UpdatedBy:         a.UpdatedBy,
	}
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	const query = `
		INSERT INTO accounts (
			id, name, email, document, phone, password_hash, referral_code,
			referrer_id, gateway_customer_id, adherent,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :email, :document, :phone, :password_hash, :referral_code,
			:referrer_id, :gateway_customer_id, :adherent,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromAccount(a))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An account with this email already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create account").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	return r.getBy(ctx, `SELECT * FROM accounts WHERE id = $1`, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.getBy(ctx, `SELECT * FROM accounts WHERE email = $1`, email)
}

func (r *accountRepository) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	return r.getBy(ctx, `SELECT * FROM accounts WHERE referral_code = $1`, code)
}

func (r *accountRepository) GetByGatewayCustomerID(ctx context.Context, gatewayCustomerID string) (*account.Account, error) {
	return r.getBy(ctx, `SELECT * FROM accounts WHERE gateway_customer_id = $1`, gatewayCustomerID)
}

func (r *accountRepository) getBy(ctx context.Context, query string, arg string) (*account.Account, error) {
	var row accountRow
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("account not found").
				WithHint("Account not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch account").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	const query = `
		UPDATE accounts SET
			name = :name,
			phone = :phone,
			password_hash = :password_hash,
			adherent = :adherent,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	a.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.db.Conn(ctx), query, fromAccount(a))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update account").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
