package settings

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Store is the persistence contract the service and auto-save loop need.
type Store interface {
	Get(ctx context.Context, userID int64) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

// Service validates and applies settings edits.
type Service struct {
	store    Store
	validate *validator.Validate
}

// NewService constructs a settings service.
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

// Get returns the user's effective settings.
func (s *Service) Get(ctx context.Context, userID int64) (Settings, error) {
	return s.store.Get(ctx, userID)
}

// Apply validates an edit, merges it over the stored document, and persists
// the result.
func (s *Service) Apply(ctx context.Context, userID int64, req UpdateRequest) (Settings, error) {
	if err := s.validate.Struct(req); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	return s.store.Save(ctx, current.applied(req))
}
