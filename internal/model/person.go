package model

import "time"

type Person struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	HouseholdID    *int64    `json:"household_id"`
	ProfileImageID *int64    `json:"profile_image_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreatePerson struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	HouseholdID *int64 `json:"household_id"`
}

// UpdatePerson is a partial update. Nil fields leave the stored value alone.
type UpdatePerson struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	HouseholdID *int64  `json:"household_id"`
}

// Apply merges the set fields of u onto p.
func (u UpdatePerson) Apply(p *Person) {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.HouseholdID != nil {
		id := *u.HouseholdID
		p.HouseholdID = &id
	}
}

// IsEmpty reports whether no field is set.
func (u UpdatePerson) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil && u.HouseholdID == nil
}

type DisplayPerson struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	HouseholdID    *int64 `json:"household_id"`
	ProfileImageID *int64 `json:"profile_image_id"`
}

func NewDisplayPerson(p Person) DisplayPerson {
	return DisplayPerson{
		ID:             p.ID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		Phone:          p.Phone,
		HouseholdID:    p.HouseholdID,
		ProfileImageID: p.ProfileImageID,
	}
}

type DisplayPersonProfileImage struct {
	DisplayPerson
	ProfileImage *DisplayImage `json:"profile_image"`
}
