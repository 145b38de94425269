package model

import "time"

type Household struct {
	ID        int64     `json:"id"`
	LeaderID  int64     `json:"leader_id"`
	AddressID int64     `json:"address_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HouseholdImage is an association row linking a household to an image.
// Image is populated by HouseholdStore.LoadImages.
type HouseholdImage struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	ImageID     int64     `json:"image_id"`
	Image       Image     `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateHousehold struct {
	LeaderID  int64 `json:"leader_id"`
	AddressID int64 `json:"address_id"`
}

type DisplayHousehold struct {
	ID        int64          `json:"id"`
	LeaderID  int64          `json:"leader_id"`
	AddressID int64          `json:"address_id"`
	Images    []DisplayImage `json:"images"`
}

// NewDisplayHousehold projects a household and its loaded image rows.
func NewDisplayHousehold(h Household, images []HouseholdImage) DisplayHousehold {
	d := DisplayHousehold{
		ID:        h.ID,
		LeaderID:  h.LeaderID,
		AddressID: h.AddressID,
		Images:    make([]DisplayImage, 0, len(images)),
	}
	for _, hi := range images {
		d.Images = append(d.Images, NewDisplayImage(hi.Image))
	}
	return d
}
