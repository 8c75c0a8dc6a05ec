package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations.
// Lookups of absent loans return sql.ErrNoRows.
type LoanRepository interface {
	// Save inserts a new loan and returns the identifier assigned to it
	Save(ctx context.Context, loan *domain.Loan) (uuid.UUID, error)

	// Update persists the mutable fields of a loan. It fails with
	// ErrConcurrentUpdate when the stored version moved on.
	Update(ctx context.Context, loan *domain.Loan) error

	// FindByID retrieves a loan by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Delete removes a loan
	Delete(ctx context.Context, id uuid.UUID) error

	// CountForIPOnDate counts loans applied for from an IP address on a calendar date
	CountForIPOnDate(ctx context.Context, ipAddress string, date time.Time) (int, error)

	// CountAll counts every registered loan
	CountAll(ctx context.Context) (int, error)

	// ListAll retrieves every loan ordered by application time
	ListAll(ctx context.Context) ([]*domain.Loan, error)

	// ListByIPAddress retrieves the loans issued against an IP address
	ListByIPAddress(ctx context.Context, ipAddress string) ([]*domain.Loan, error)

	// ListByClient retrieves the loans issued against any IP address of a client
	ListByClient(ctx context.Context, clientKey string) ([]*domain.Loan, error)
}

// IdentityRepository defines the interface for client and IP address lookups.
// Lookups of absent records return sql.ErrNoRows.
type IdentityRepository interface {
	// FindClientByKey retrieves a client by its key
	FindClientByKey(ctx context.Context, key string) (*domain.Client, error)

	// FindIPAddress retrieves a registered IP address by value
	FindIPAddress(ctx context.Context, value string) (*domain.IPAddress, error)

	// IPAddressExists checks whether an IP address is registered
	IPAddressExists(ctx context.Context, value string) (bool, error)

	// CreateClient registers a client
	CreateClient(ctx context.Context, client *domain.Client) error

	// CreateIPAddress registers an IP address for an existing client
	CreateIPAddress(ctx context.Context, address *domain.IPAddress) error
}
