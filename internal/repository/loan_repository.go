package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

const loanColumns = `
	l.id, l.ip_address, COALESCE(i.client_key, '') AS client_key, l.application_time,
	l.return_date, l.amount, l.currency, l.interest_rate, l.is_extended, l.version`

const loanFrom = `
	FROM loans l
	LEFT JOIN ip_addresses i ON i.value = l.ip_address`

// loanRow is the flat row shape; the loan references its IP address by value
type loanRow struct {
	ID              uuid.UUID `db:"id"`
	IPAddress       string    `db:"ip_address"`
	ClientKey       string    `db:"client_key"`
	ApplicationTime time.Time `db:"application_time"`
	ReturnDate      time.Time `db:"return_date"`
	Amount          int64     `db:"amount"`
	Currency        string    `db:"currency"`
	InterestRate    int64     `db:"interest_rate"`
	IsExtended      bool      `db:"is_extended"`
	Version         int64     `db:"version"`
}

func (r loanRow) toDomain() *domain.Loan {
	return &domain.Loan{
		ID:              r.ID,
		IPAddress:       domain.IPAddressRef{Value: r.IPAddress, ClientKey: r.ClientKey},
		ApplicationTime: r.ApplicationTime,
		ReturnDate:      utils.DateOf(r.ReturnDate),
		Amount:          r.Amount,
		Currency:        domain.Currency(r.Currency),
		InterestRate:    r.InterestRate,
		IsExtended:      r.IsExtended,
		Version:         r.Version,
	}
}

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Save(ctx context.Context, loan *domain.Loan) (uuid.UUID, error) {
	query := r.db.Rebind(`
		INSERT INTO loans (id, ip_address, application_time, application_date, return_date, amount,
			currency, interest_rate, is_extended, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	id := uuid.New()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		id,
		loan.IPAddress.Value,
		loan.ApplicationTime,
		loan.ApplicationDate().Format(utils.DateLayout),
		utils.DateOf(loan.ReturnDate),
		loan.Amount,
		string(loan.Currency),
		loan.InterestRate,
		loan.IsExtended,
		1,
		now,
		now,
	)
	if err != nil {
		return uuid.Nil, err
	}

	loan.ID = id
	loan.Version = 1
	return id, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := r.db.Rebind(`
		UPDATE loans
		SET return_date = ?, interest_rate = ?, is_extended = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		utils.DateOf(loan.ReturnDate),
		loan.InterestRate,
		loan.IsExtended,
		time.Now().UTC(),
		loan.ID,
		loan.Version,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.ErrConcurrentUpdate
	}

	loan.Version++
	return nil
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := r.db.Rebind(`SELECT` + loanColumns + loanFrom + `
		WHERE l.id = ?
	`)

	var row loanRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM loans WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *loanRepository) CountForIPOnDate(ctx context.Context, ipAddress string, date time.Time) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*)
		FROM loans
		WHERE ip_address = ? AND application_date = ?
	`)

	var count int
	err := r.db.GetContext(ctx, &count, query, ipAddress, utils.DateOf(date).Format(utils.DateLayout))
	return count, err
}

func (r *loanRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM loans`)
	return count, err
}

func (r *loanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	return r.list(ctx, `SELECT`+loanColumns+loanFrom+`
		ORDER BY l.application_time, l.id
	`)
}

func (r *loanRepository) ListByIPAddress(ctx context.Context, ipAddress string) ([]*domain.Loan, error) {
	return r.list(ctx, `SELECT`+loanColumns+loanFrom+`
		WHERE l.ip_address = ?
		ORDER BY l.application_time, l.id
	`, ipAddress)
}

func (r *loanRepository) ListByClient(ctx context.Context, clientKey string) ([]*domain.Loan, error) {
	return r.list(ctx, `SELECT`+loanColumns+loanFrom+`
		WHERE i.client_key = ?
		ORDER BY l.application_time, l.id
	`, clientKey)
}

func (r *loanRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Loan, error) {
	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toDomain())
	}
	return loans, nil
}
