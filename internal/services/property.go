package services

import (
	"context"
	"strings"

	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/internal/storage"
	"github.com/prostay/apiserver/types"
)

const (
	defaultPropertyLimit = 20
	maxPropertyLimit     = 100
)

// PropertyRepository defines persistence operations for properties.
type PropertyRepository interface {
	List(ctx context.Context, viewerID, offset, limit int) ([]types.PropertyListItem, int, error)
	ListByLandlord(ctx context.Context, landlordID int) ([]types.Property, error)
	ListFavorites(ctx context.Context, userID int) ([]types.PropertyListItem, error)
	Get(ctx context.Context, id int) (types.Property, error)
	GetDetails(ctx context.Context, id int) (types.PropertyDetails, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, property types.Property) (types.Property, error)
	Update(ctx context.Context, property types.Property) (types.Property, error)
	UpdateStatus(ctx context.Context, id int, status types.PropertyStatus) error
	Delete(ctx context.Context, id int) error
}

// PropertyInput holds the editable fields of a listing.
type PropertyInput struct {
	Title       string
	Price       int64
	Bedrooms    int
	Bathrooms   int
	Type        string
	Address     string
	City        string
	Description string
	Image       []byte
}

func (in PropertyInput) normalize() (PropertyInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Title == "":
		return in, invalidf("title is required")
	case in.Type == "":
		return in, invalidf("type is required")
	case in.Address == "" || in.City == "":
		return in, invalidf("address and city are required")
	case in.Description == "":
		return in, invalidf("description is required")
	case in.Price < 0:
		return in, invalidf("price must not be negative")
	case in.Bedrooms < 0 || in.Bathrooms < 0:
		return in, invalidf("room counts must not be negative")
	}
	return in, nil
}

// PropertyService encapsulates listing use-cases.
type PropertyService struct {
	repo   PropertyRepository
	images ImageStore
	events EventNotifier
}

func NewPropertyService(repo PropertyRepository, images ImageStore, events EventNotifier) *PropertyService {
	return &PropertyService{repo: repo, images: images, events: notifierOrDiscard(events)}
}

// List returns a page of listings. viewerID may be zero for anonymous
// viewers.
func (s *PropertyService) List(ctx context.Context, viewerID, offset, limit int) ([]types.PropertyListItem, int, error) {
	if limit <= 0 {
		limit = defaultPropertyLimit
	}
	if limit > maxPropertyLimit {
		limit = maxPropertyLimit
	}
	return s.repo.List(ctx, viewerID, offset, limit)
}

func (s *PropertyService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *PropertyService) Get(ctx context.Context, id int) (types.PropertyDetails, error) {
	return s.repo.GetDetails(ctx, id)
}

func (s *PropertyService) ListByLandlord(ctx context.Context, landlordID int) ([]types.Property, error) {
	return s.repo.ListByLandlord(ctx, landlordID)
}

// Create lists a new property owned by the acting landlord.
func (s *PropertyService) Create(ctx context.Context, actor Actor, in PropertyInput) (types.Property, error) {
	if actor.Role != types.RoleLandlord {
		return types.Property{}, ErrForbidden
	}
	in, err := in.normalize()
	if err != nil {
		return types.Property{}, err
	}

	image, err := saveImage(ctx, s.images, storage.PrefixProperties, in.Image)
	if err != nil {
		return types.Property{}, err
	}

	property, err := s.repo.Create(ctx, types.Property{
		Title:       in.Title,
		Price:       in.Price,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		Type:        in.Type,
		Address:     in.Address,
		City:        in.City,
		Description: in.Description,
		Image:       image,
		Status:      types.PropertyAvailable,
		LandlordID:  actor.ID,
	})
	if err != nil {
		deleteImage(ctx, s.images, image)
		return types.Property{}, err
	}
	return property, nil
}

// Update rewrites a listing. Only its landlord or an admin may do so.
func (s *PropertyService) Update(ctx context.Context, actor Actor, id int, in PropertyInput) (types.Property, error) {
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return types.Property{}, err
	}
	in, err = in.normalize()
	if err != nil {
		return types.Property{}, err
	}

	image, err := saveImage(ctx, s.images, storage.PrefixProperties, in.Image)
	if err != nil {
		return types.Property{}, err
	}

	updated := current
	updated.Title = in.Title
	updated.Price = in.Price
	updated.Bedrooms = in.Bedrooms
	updated.Bathrooms = in.Bathrooms
	updated.Type = in.Type
	updated.Address = in.Address
	updated.City = in.City
	updated.Description = in.Description
	updated.Image = image

	updated, err = s.repo.Update(ctx, updated)
	if err != nil {
		deleteImage(ctx, s.images, image)
		return types.Property{}, err
	}
	if image != "" {
		deleteImage(ctx, s.images, current.Image)
	} else {
		updated.Image = current.Image
	}
	return updated, nil
}

// UpdateStatus changes the listing state and announces it.
func (s *PropertyService) UpdateStatus(ctx context.Context, actor Actor, id int, rawStatus string) (types.PropertyStatus, error) {
	status, err := types.ParsePropertyStatus(rawStatus)
	if err != nil {
		return "", invalidf("%v", err)
	}
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return "", err
	}

	s.events.Notify(ctx, mq.NewEvent(mq.EventPropertyStatusChanged, id, actor.ID, map[string]string{
		"from": string(current.Status),
		"to":   string(status),
	}))
	return status, nil
}

// Delete removes a listing and its image.
func (s *PropertyService) Delete(ctx context.Context, actor Actor, id int) error {
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	deleteImage(ctx, s.images, current.Image)
	return nil
}

func (s *PropertyService) authorize(ctx context.Context, actor Actor, id int) (types.Property, error) {
	property, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Property{}, err
	}
	if !actor.owns(property.LandlordID) {
		return types.Property{}, ErrForbidden
	}
	return property, nil
}
