// Package services holds the use-cases behind the HTTP handlers: ownership
// checks, input normalization, image handling and domain events.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/types"
)

var (
	// ErrInvalidInput is returned when a request fails domain validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the actor may not touch the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUploadsDisabled is returned when an image is sent but no storage
	// backend is configured.
	ErrUploadsDisabled = errors.New("image uploads are disabled")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller of a use-case.
type Actor struct {
	ID   int
	Role types.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == types.RoleAdmin
}

// owns reports whether the actor is the landlord ownerID or an admin.
func (a Actor) owns(ownerID int) bool {
	return a.IsAdmin() || (a.Role == types.RoleLandlord && a.ID == ownerID)
}

// ImageStore persists uploaded images.
type ImageStore interface {
	SaveImage(ctx context.Context, prefix string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// EventNotifier publishes domain events on a best-effort basis.
type EventNotifier interface {
	Notify(ctx context.Context, event mq.Event)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, mq.Event) {}

func notifierOrDiscard(n EventNotifier) EventNotifier {
	if n == nil {
		return discardNotifier{}
	}
	return n
}

func saveImage(ctx context.Context, images ImageStore, prefix string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if images == nil {
		return "", ErrUploadsDisabled
	}
	return images.SaveImage(ctx, prefix, data)
}

func deleteImage(ctx context.Context, images ImageStore, key string) {
	if images == nil || key == "" {
		return
	}
	_ = images.Delete(ctx, key)
}
