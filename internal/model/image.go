package model

import "time"

// Image store names.
const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

type Image struct {
	ID          int64     `json:"id"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	Store       string    `json:"store"`
	Created     time.Time `json:"created"`
}

type DisplayImage struct {
	ID          int64     `json:"id"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	Store       string    `json:"store"`
	Created     time.Time `json:"created"`
}

func NewDisplayImage(img Image) DisplayImage {
	return DisplayImage{
		ID:          img.ID,
		Address:     img.Address,
		Description: img.Description,
		Store:       img.Store,
		Created:     img.Created,
	}
}
