package service

import (
	"context"
	"fmt"
	"io"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
)

// HouseholdService coordinates households, their addresses and images.
type HouseholdService struct {
	households *store.HouseholdStore
	people     *store.PersonStore
	addresses  *store.AddressStore
	images     *store.ImageStore
	media      media.Store
}

func NewHouseholdService(db database.DBTX, m media.Store) *HouseholdService {
	return &HouseholdService{
		households: store.NewHouseholdStore(db),
		people:     store.NewPersonStore(db),
		addresses:  store.NewAddressStore(db),
		images:     store.NewImageStore(db),
		media:      m,
	}
}

func (s *HouseholdService) GetAll(ctx context.Context) ([]model.DisplayHousehold, error) {
	households, err := s.households.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DisplayHousehold, 0, len(households))
	for _, h := range households {
		images, err := s.households.LoadImages(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.NewDisplayHousehold(h, images))
	}
	return out, nil
}

// GetByID returns nil when the household does not exist.
func (s *HouseholdService) GetByID(ctx context.Context, id int64) (*model.DisplayHousehold, error) {
	h, err := s.households.GetByID(ctx, id)
	if err != nil || h == nil {
		return nil, err
	}
	return s.display(ctx, *h)
}

func (s *HouseholdService) Create(ctx context.Context, req model.CreateHousehold) (*model.DisplayHousehold, error) {
	leader, err := s.people.GetByID(ctx, req.LeaderID)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, notFound(KindPerson, req.LeaderID)
	}
	addr, err := s.addresses.GetByID(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, notFound(KindAddress, req.AddressID)
	}

	h, err := s.households.Create(ctx, model.Household{LeaderID: leader.ID, AddressID: addr.ID})
	if err != nil {
		return nil, err
	}
	return s.display(ctx, *h)
}

// AddImage stores the file, records it as an image and associates it with the household.
func (s *HouseholdService) AddImage(ctx context.Context, householdID int64, filename, description string, r io.Reader) (*model.DisplayHousehold, error) {
	h, err := s.mustGet(ctx, householdID)
	if err != nil {
		return nil, err
	}

	obj, err := s.media.Save(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("store household image: %w", err)
	}
	if description == "" {
		description = filename
	}
	img, err := s.images.Create(ctx, model.Image{
		Address:     obj.Address,
		Description: description,
		Store:       obj.Store,
	})
	if err != nil {
		return nil, err
	}
	if err := s.households.AddImage(ctx, h.ID, img.ID); err != nil {
		return nil, err
	}
	return s.display(ctx, *h)
}

func (s *HouseholdService) GetImages(ctx context.Context, householdID int64) ([]model.DisplayImage, error) {
	h, err := s.mustGet(ctx, householdID)
	if err != nil {
		return nil, err
	}
	d, err := s.display(ctx, *h)
	if err != nil {
		return nil, err
	}
	return d.Images, nil
}

func (s *HouseholdService) CreateAddress(ctx context.Context, req model.CreateAddress) (*model.Address, error) {
	return s.addresses.Create(ctx, model.Address{
		Street:     req.Street,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
}

// GetAddress returns nil when the address does not exist.
func (s *HouseholdService) GetAddress(ctx context.Context, id int64) (*model.Address, error) {
	return s.addresses.GetByID(ctx, id)
}

func (s *HouseholdService) display(ctx context.Context, h model.Household) (*model.DisplayHousehold, error) {
	images, err := s.households.LoadImages(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	d := model.NewDisplayHousehold(h, images)
	return &d, nil
}

func (s *HouseholdService) mustGet(ctx context.Context, id int64) (*model.Household, error) {
	h, err := s.households.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, notFound(KindHousehold, id)
	}
	return h, nil
}
