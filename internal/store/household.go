package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/model"
)

type HouseholdStore struct {
	db database.DBTX
}

func NewHouseholdStore(db database.DBTX) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.LeaderID, &h.AddressID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, leader_id, address_id, created_at, updated_at`

func (s *HouseholdStore) Create(ctx context.Context, h model.Household) (*model.Household, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO households (leader_id, address_id) VALUES (?, ?)`,
		h.LeaderID, h.AddressID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) GetByID(ctx context.Context, id int64) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// List returns every household ordered by id. The result is never nil.
func (s *HouseholdStore) List(ctx context.Context) ([]model.Household, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+householdCols+` FROM households ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	households := []model.Household{}
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

// AddImage links an existing image to a household. The image row is not modified.
func (s *HouseholdStore) AddImage(ctx context.Context, householdID, imageID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_images (household_id, image_id) VALUES (?, ?)`,
		householdID, imageID,
	)
	if err != nil {
		return fmt.Errorf("add household image: %w", err)
	}
	return nil
}

// LoadImages returns the household's association rows with their images joined,
// in insertion order.
func (s *HouseholdStore) LoadImages(ctx context.Context, householdID int64) ([]model.HouseholdImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hi.id, hi.household_id, hi.image_id, hi.created_at,
		        i.id, i.address, i.description, i.store, i.created
		 FROM household_images hi
		 JOIN images i ON i.id = hi.image_id
		 WHERE hi.household_id = ?
		 ORDER BY hi.id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("load household images: %w", err)
	}
	defer rows.Close()

	images := []model.HouseholdImage{}
	for rows.Next() {
		var hi model.HouseholdImage
		if err := rows.Scan(&hi.ID, &hi.HouseholdID, &hi.ImageID, &hi.CreatedAt,
			&hi.Image.ID, &hi.Image.Address, &hi.Image.Description, &hi.Image.Store, &hi.Image.Created); err != nil {
			return nil, fmt.Errorf("scan household image: %w", err)
		}
		images = append(images, hi)
	}
	return images, rows.Err()
}
