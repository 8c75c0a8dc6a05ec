package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

type identityRepository struct {
	db *sqlx.DB
}

func NewIdentityRepository(db *sqlx.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) FindClientByKey(ctx context.Context, key string) (*domain.Client, error) {
	query := r.db.Rebind(`
		SELECT client_key, name, email_address, postal_address
		FROM clients
		WHERE client_key = ?
	`)

	var client domain.Client
	if err := r.db.GetContext(ctx, &client, query, key); err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *identityRepository) FindIPAddress(ctx context.Context, value string) (*domain.IPAddress, error) {
	query := r.db.Rebind(`
		SELECT value, client_key
		FROM ip_addresses
		WHERE value = ?
	`)

	var address domain.IPAddress
	if err := r.db.GetContext(ctx, &address, query, value); err != nil {
		return nil, err
	}

	return &address, nil
}

func (r *identityRepository) IPAddressExists(ctx context.Context, value string) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM ip_addresses WHERE value = ?`)

	var count int
	if err := r.db.GetContext(ctx, &count, query, value); err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *identityRepository) CreateClient(ctx context.Context, client *domain.Client) error {
	query := r.db.Rebind(`
		INSERT INTO clients (client_key, name, email_address, postal_address)
		VALUES (?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		client.Key,
		client.Name,
		client.EmailAddress,
		client.PostalAddress,
	)

	return err
}

func (r *identityRepository) CreateIPAddress(ctx context.Context, address *domain.IPAddress) error {
	query := r.db.Rebind(`
		INSERT INTO ip_addresses (value, client_key)
		VALUES (?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query, address.Value, address.ClientKey)
	return err
}
