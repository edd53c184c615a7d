// Package advertising owns the storefront interstitial banners: their persistence, the
// single-active invariant, their image files and the once-per-client presentation gate.
package advertising

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/storage"
)

// EventAdvertisingChanged is broadcast to storefront clients after any mutation.
const EventAdvertisingChanged = "advertising_changed"

// DeletedMessage confirms a successful delete.
const DeletedMessage = "Advertising deleted successfully"

// Store is the query surface the service needs. *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]models.Advertising, error)
	GetByID(ctx context.Context, id int64) (*models.Advertising, error)
	GetActive(ctx context.Context) (*models.Advertising, error)
	DeactivateAll(ctx context.Context) error
	Insert(ctx context.Context, a *models.Advertising) error
	Update(ctx context.Context, a *models.Advertising) error
	Delete(ctx context.Context, id int64) error
	Atomic(ctx context.Context, fn func(Store) error) error
}

// ActiveLookup is a cache read. Generation must be passed back to Store after a miss.
type ActiveLookup struct {
	Advertising *models.Advertising
	Hit         bool
	Generation  int64
}

// ActiveCache caches the GetActive result. A cached nil means "no active advertising".
// Store must refuse the write once Invalidate has run after the Lookup that produced gen.
type ActiveCache interface {
	Lookup(ctx context.Context) (ActiveLookup, error)
	Store(ctx context.Context, gen int64, a *models.Advertising) (bool, error)
	Invalidate(ctx context.Context) error
}

// Broadcaster pushes events to connected storefront clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// CleanupQueue hands failed image removals to the background worker.
type CleanupQueue interface {
	EnqueueImageCleanup(ctx context.Context, stored string) error
}

// Input is the create/update payload. Nil fields are left unchanged on update.
type Input struct {
	Image      *string `json:"image"`
	Link       *string `json:"link"`
	ButtonText *string `json:"buttonText"`
	Status     *Flag   `json:"status"`
}

// Service is the only writer of Advertising.Status and keeps at most one row active.
type Service struct {
	repo    Store
	images  storage.ImageStore
	cache   ActiveCache
	events  Broadcaster
	cleanup CleanupQueue
	logger  *zap.Logger
}

// NewService creates the advertising service.
func NewService(repo Store, images storage.ImageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, images: images, logger: logger}
}

// SetCache enables caching of the active advertising.
func (s *Service) SetCache(c ActiveCache) { s.cache = c }

// SetBroadcaster sets where advertising_changed events are sent.
func (s *Service) SetBroadcaster(b Broadcaster) { s.events = b }

// SetCleanupQueue sets the queue used to retry failed image removals.
func (s *Service) SetCleanupQueue(q CleanupQueue) { s.cleanup = q }

// List returns all advertising, newest first.
func (s *Service) List(ctx context.Context) ([]models.Advertising, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get advertising: %w", err)
	}
	for i := range list {
		s.decorate(&list[i])
	}
	return list, nil
}

// GetByID returns one advertising or an apperr.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.Advertising, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get advertising: %w", err)
	}
	s.decorate(a)
	return a, nil
}

// GetActive returns the active advertising, or nil when there is none.
func (s *Service) GetActive(ctx context.Context) (*models.Advertising, error) {
	cacheable := false
	var gen int64
	if s.cache != nil {
		hit, err := s.cache.Lookup(ctx)
		switch {
		case err != nil:
			s.logger.Warn("active advertising cache read failed", zap.Error(err))
		case hit.Hit:
			return hit.Advertising, nil
		default:
			cacheable, gen = true, hit.Generation
		}
	}
	a, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active advertising: %w", err)
	}
	if a != nil {
		s.decorate(a)
	}
	if cacheable {
		stored, err := s.cache.Store(ctx, gen, a)
		if err != nil {
			s.logger.Warn("active advertising cache write failed", zap.Error(err))
		} else if !stored {
			s.logger.Debug("active advertising changed during read, not cached")
		}
	}
	return a, nil
}

// Create stores the image, then inserts the row. When the new row is active every other
// row is deactivated in the same transaction.
func (s *Service) Create(ctx context.Context, in Input) (*models.Advertising, error) {
	if in.Image == nil || strings.TrimSpace(*in.Image) == "" {
		return nil, fmt.Errorf("failed to create advertising: %w", apperr.Validation("image is required"))
	}
	raw := strings.TrimSpace(*in.Image)
	image, err := s.images.Store(ctx, raw, "new")
	if err != nil {
		return nil, fmt.Errorf("failed to create advertising: %w", err)
	}

	a := &models.Advertising{
		Image:      image,
		ButtonText: models.DefaultButtonText,
		Status:     in.Status.Bool(),
	}
	if in.Link != nil {
		a.Link = strings.TrimSpace(*in.Link)
	}
	if in.ButtonText != nil && strings.TrimSpace(*in.ButtonText) != "" {
		a.ButtonText = strings.TrimSpace(*in.ButtonText)
	}

	err = s.repo.Atomic(ctx, func(r Store) error {
		if a.Status {
			if err := r.DeactivateAll(ctx); err != nil {
				return err
			}
		}
		return r.Insert(ctx, a)
	})
	if err != nil {
		if storage.IsDataURI(raw) {
			s.release(ctx, image)
		}
		return nil, fmt.Errorf("failed to create advertising: %w", err)
	}

	s.logger.Info("advertising created", zap.Int64("id", a.ID), zap.Bool("status", a.Status))
	s.decorate(a)
	s.changed(ctx)
	return a, nil
}

// Update merges the present fields into the stored row. A new data-URI image is written
// before the row changes; the replaced file is removed only after the row points at the new one.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*models.Advertising, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update advertising: %w", err)
	}
	updated := *existing
	oldImage := existing.Image

	newFile := ""
	if in.Image != nil && strings.TrimSpace(*in.Image) != "" {
		raw := strings.TrimSpace(*in.Image)
		image, err := s.images.Store(ctx, raw, strconv.FormatInt(id, 10))
		if err != nil {
			return nil, fmt.Errorf("failed to update advertising: %w", err)
		}
		if storage.IsDataURI(raw) {
			newFile = image
		}
		updated.Image = image
	}
	if in.Link != nil {
		updated.Link = strings.TrimSpace(*in.Link)
	}
	if in.ButtonText != nil {
		updated.ButtonText = strings.TrimSpace(*in.ButtonText)
		if updated.ButtonText == "" {
			updated.ButtonText = models.DefaultButtonText
		}
	}
	if in.Status != nil {
		updated.Status = in.Status.Bool()
	}

	err = s.repo.Atomic(ctx, func(r Store) error {
		if updated.Status {
			if err := r.DeactivateAll(ctx); err != nil {
				return err
			}
		}
		return r.Update(ctx, &updated)
	})
	if err != nil {
		if newFile != "" {
			s.release(ctx, newFile)
		}
		return nil, fmt.Errorf("failed to update advertising: %w", err)
	}

	if oldImage != updated.Image {
		s.release(ctx, oldImage)
	}
	s.logger.Info("advertising updated", zap.Int64("id", id), zap.Bool("status", updated.Status))
	s.decorate(&updated)
	s.changed(ctx)
	return &updated, nil
}

// Delete removes the row, then its image file. A failed file removal does not fail the delete.
func (s *Service) Delete(ctx context.Context, id int64) (string, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to delete advertising: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("failed to delete advertising: %w", err)
	}
	s.release(ctx, existing.Image)
	s.logger.Info("advertising deleted", zap.Int64("id", id))
	s.changed(ctx)
	return DeletedMessage, nil
}

// release removes a locally owned image. Failures are logged and queued for retry, never returned.
func (s *Service) release(ctx context.Context, stored string) {
	if !storage.IsLocallyOwned(stored) {
		return
	}
	err := s.images.Remove(ctx, stored)
	if err == nil {
		return
	}
	s.logger.Warn("image cleanup failed", zap.String("image", stored), zap.Error(err))
	if s.cleanup == nil {
		return
	}
	if qErr := s.cleanup.EnqueueImageCleanup(ctx, stored); qErr != nil {
		s.logger.Warn("enqueue image cleanup failed", zap.String("image", stored), zap.Error(qErr))
	}
}

// changed drops the cached active advertising and tells storefront clients what is active now.
func (s *Service) changed(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("active advertising cache invalidate failed", zap.Error(err))
		}
	}
	if s.events == nil {
		return
	}
	active, err := s.repo.GetActive(ctx)
	if err != nil {
		s.logger.Warn("load active advertising for broadcast failed", zap.Error(err))
		return
	}
	if active != nil {
		s.decorate(active)
	}
	s.events.Broadcast(EventAdvertisingChanged, active)
}

func (s *Service) decorate(a *models.Advertising) {
	a.ImageURL = s.images.URL(a.Image)
}
