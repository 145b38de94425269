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

// Entity kinds reported in NotFoundError.
const (
	KindPerson    = "person"
	KindHousehold = "household"
	KindAddress   = "address"
	KindImage     = "image"
)

// PersonService coordinates people, their profile images and the media store.
// It runs against a single handle, normally the request's transaction.
type PersonService struct {
	people     *store.PersonStore
	households *store.HouseholdStore
	images     *store.ImageStore
	media      media.Store
}

func NewPersonService(db database.DBTX, m media.Store) *PersonService {
	return &PersonService{
		people:     store.NewPersonStore(db),
		households: store.NewHouseholdStore(db),
		images:     store.NewImageStore(db),
		media:      m,
	}
}

func (s *PersonService) GetAll(ctx context.Context) ([]model.DisplayPerson, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DisplayPerson, 0, len(people))
	for _, p := range people {
		out = append(out, model.NewDisplayPerson(p))
	}
	return out, nil
}

// GetByID returns nil when the person does not exist.
func (s *PersonService) GetByID(ctx context.Context, id int64) (*model.DisplayPerson, error) {
	p, err := s.people.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	d := model.NewDisplayPerson(*p)
	return &d, nil
}

// Create inserts a person. A household_id that names no household reports
// NotFoundError.
func (s *PersonService) Create(ctx context.Context, req model.CreatePerson) (*model.DisplayPerson, error) {
	if err := s.checkHousehold(ctx, req.HouseholdID); err != nil {
		return nil, err
	}
	p, err := s.people.Create(ctx, model.Person{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		HouseholdID: req.HouseholdID,
	})
	if err != nil {
		return nil, err
	}
	d := model.NewDisplayPerson(*p)
	return &d, nil
}

func (s *PersonService) Update(ctx context.Context, id int64, patch model.UpdatePerson) (*model.DisplayPerson, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkHousehold(ctx, patch.HouseholdID); err != nil {
		return nil, err
	}
	patch.Apply(p)

	updated, err := s.people.Update(ctx, *p)
	if err != nil {
		return nil, err
	}
	d := model.NewDisplayPerson(*updated)
	return &d, nil
}

// GetProfileImage returns the current profile image, or nil when none is set.
func (s *PersonService) GetProfileImage(ctx context.Context, id int64) (*model.DisplayImage, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ProfileImageID == nil {
		return nil, nil
	}
	img, err := s.images.GetByID(ctx, *p.ProfileImageID)
	if err != nil || img == nil {
		return nil, err
	}
	d := model.NewDisplayImage(*img)
	return &d, nil
}

func (s *PersonService) GetProfileImages(ctx context.Context, id int64) ([]model.DisplayImage, error) {
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	images, err := s.people.ListProfileImages(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]model.DisplayImage, 0, len(images))
	for _, img := range images {
		out = append(out, model.NewDisplayImage(img))
	}
	return out, nil
}

// UploadProfileImage stores the file, records it as an image and makes it the
// person's current profile image.
func (s *PersonService) UploadProfileImage(ctx context.Context, id int64, filename string, r io.Reader) (*model.DisplayPersonProfileImage, error) {
	p, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	obj, err := s.media.Save(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("store profile image: %w", err)
	}
	img, err := s.images.Create(ctx, model.Image{
		Address:     obj.Address,
		Description: filename,
		Store:       obj.Store,
	})
	if err != nil {
		return nil, err
	}
	if err := s.people.SetProfileImage(ctx, p.ID, img.ID); err != nil {
		return nil, err
	}

	updated, err := s.people.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	di := model.NewDisplayImage(*img)
	return &model.DisplayPersonProfileImage{
		DisplayPerson: model.NewDisplayPerson(*updated),
		ProfileImage:  &di,
	}, nil
}

func (s *PersonService) mustGet(ctx context.Context, id int64) (*model.Person, error) {
	p, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(KindPerson, id)
	}
	return p, nil
}

func (s *PersonService) checkHousehold(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	h, err := s.households.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	if h == nil {
		return notFound(KindHousehold, *id)
	}
	return nil
}
