package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/model"
)

type PersonStore struct {
	db database.DBTX
}

func NewPersonStore(db database.DBTX) *PersonStore {
	return &PersonStore{db: db}
}

func scanPerson(scanner interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	var householdID, profileImageID sql.NullInt64
	err := scanner.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&householdID, &profileImageID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.HouseholdID = nullInt64Ptr(householdID)
	p.ProfileImageID = nullInt64Ptr(profileImageID)
	return &p, nil
}

const personCols = `id, first_name, last_name, email, phone, household_id, profile_image_id, created_at, updated_at`

func (s *PersonStore) Create(ctx context.Context, p model.Person) (*model.Person, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO people (first_name, last_name, email, phone, household_id) VALUES (?, ?, ?, ?, ?)`,
		p.FirstName, p.LastName, p.Email, p.Phone, int64PtrArg(p.HouseholdID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PersonStore) GetByID(ctx context.Context, id int64) (*model.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personCols+` FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// List returns every person ordered by id. The result is never nil.
func (s *PersonStore) List(ctx context.Context) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personCols+` FROM people ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := []model.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

// Update writes every mutable column of p. Callers merge patches beforehand.
func (s *PersonStore) Update(ctx context.Context, p model.Person) (*model.Person, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE people SET first_name = ?, last_name = ?, email = ?, phone = ?, household_id = ? WHERE id = ?`,
		p.FirstName, p.LastName, p.Email, p.Phone, int64PtrArg(p.HouseholdID), p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	return s.GetByID(ctx, p.ID)
}

// SetProfileImage records imageID in the person's image history and makes it
// the current profile image.
func (s *PersonStore) SetProfileImage(ctx context.Context, personID, imageID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO person_images (person_id, image_id) VALUES (?, ?)`,
		personID, imageID,
	); err != nil {
		return fmt.Errorf("insert person image: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE people SET profile_image_id = ? WHERE id = ?`,
		imageID, personID,
	); err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}

// ListProfileImages returns every profile image uploaded for a person, newest first.
func (s *PersonStore) ListProfileImages(ctx context.Context, personID int64) ([]model.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.address, i.description, i.store, i.created
		 FROM images i
		 JOIN person_images pi ON pi.image_id = i.id
		 WHERE pi.person_id = ?
		 ORDER BY pi.id DESC`,
		personID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profile images: %w", err)
	}
	defer rows.Close()

	images := []model.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func int64PtrArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
