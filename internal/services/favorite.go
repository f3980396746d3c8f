package services

import (
	"context"

	"github.com/prostay/apiserver/types"
)

// FavoriteRepository toggles favorites atomically.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, propertyID int) (bool, error)
}

// FavoriteLister lists the properties a user has liked.
type FavoriteLister interface {
	ListFavorites(ctx context.Context, userID int) ([]types.PropertyListItem, error)
}

type FavoriteService struct {
	repo       FavoriteRepository
	properties FavoriteLister
}

func NewFavoriteService(repo FavoriteRepository, properties FavoriteLister) *FavoriteService {
	return &FavoriteService{repo: repo, properties: properties}
}

// Toggle flips the favorite state of propertyID for userID and returns the
// new state.
func (s *FavoriteService) Toggle(ctx context.Context, userID, propertyID int) (bool, error) {
	if propertyID < 1 {
		return false, invalidf("property_id must be positive")
	}
	return s.repo.Toggle(ctx, userID, propertyID)
}

func (s *FavoriteService) List(ctx context.Context, userID int) ([]types.PropertyListItem, error) {
	items, err := s.properties.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Liked = true
	}
	return items, nil
}
