package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/model"
)

type AddressStore struct {
	db database.DBTX
}

func NewAddressStore(db database.DBTX) *AddressStore {
	return &AddressStore{db: db}
}

const addressCols = `id, street, city, region, postal_code, country, created_at`

func (s *AddressStore) Create(ctx context.Context, a model.Address) (*model.Address, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO addresses (street, city, region, postal_code, country) VALUES (?, ?, ?, ?, ?)`,
		a.Street, a.City, a.Region, a.PostalCode, a.Country,
	)
	if err != nil {
		return nil, fmt.Errorf("insert address: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AddressStore) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	var a model.Address
	err := s.db.QueryRowContext(ctx, `SELECT `+addressCols+` FROM addresses WHERE id = ?`, id).
		Scan(&a.ID, &a.Street, &a.City, &a.Region, &a.PostalCode, &a.Country, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return &a, nil
}
