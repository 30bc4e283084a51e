// Package video serves the shared video catalog through the query cache.
// The whole catalog lives under one key, so every write invalidates it.
package video

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// VideosKey caches the video catalog, shared by all users.
const VideosKey = "videos"

// Mutation kinds, used as the metrics label.
const (
	KindCreate = "create_video"
	KindUpdate = "update_video"
	KindDelete = "delete_video"
)

// ErrInvalidArgument is returned for requests rejected before reaching the store.
var ErrInvalidArgument = errors.New("invalid argument")

// Service is the video logic used by the HTTP layer.
type Service interface {
	// List returns the catalog, newest first. An author or recipe that
	// could not be joined is reported as nil.
	List(ctx context.Context) ([]*store.Video, error)

	// Create posts a video as userID.
	Create(ctx context.Context, userID string, create *store.Video) (*store.Video, error)

	// Update changes a video posted by userID.
	Update(ctx context.Context, userID string, update *store.UpdateVideo) (*store.Video, error)

	// Delete removes a video posted by userID.
	Delete(ctx context.Context, userID, videoID string) error
}

// Store is the subset of store.Store the video service needs.
type Store interface {
	ListVideos(ctx context.Context, find *store.FindVideo) ([]*store.Video, error)
	CreateVideo(ctx context.Context, create *store.Video) (*store.Video, error)
	UpdateVideo(ctx context.Context, update *store.UpdateVideo) (*store.Video, error)
	DeleteVideo(ctx context.Context, delete *store.DeleteVideo) error
}

var _ Store = (*store.Store)(nil)

type service struct {
	store       Store
	cache       *cache.QueryCache
	coordinator *cache.Coordinator
	logger      *slog.Logger
}

// NewService creates a video service reading through qc.
func NewService(st Store, qc *cache.QueryCache, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		store:       st,
		cache:       qc,
		coordinator: cache.NewCoordinator(qc, logger),
		logger:      logger,
	}
}

func (s *service) query() *cache.Query[[]*store.Video] {
	return cache.NewQuery(s.cache, VideosKey, func(ctx context.Context) ([]*store.Video, error) {
		list, err := s.store.ListVideos(ctx, &store.FindVideo{})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list videos")
		}
		return list, nil
	})
}

func (s *service) List(ctx context.Context) ([]*store.Video, error) {
	entry, err := s.query().Get(ctx)
	if err != nil {
		return nil, err
	}
	if entry.Value == nil {
		return []*store.Video{}, nil
	}
	return entry.Value, nil
}

func (s *service) Create(ctx context.Context, userID string, create *store.Video) (*store.Video, error) {
	if strings.TrimSpace(create.Title) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "title is required")
	}
	if strings.TrimSpace(create.Category) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "category is required")
	}
	create.CreatedBy = userID

	var created *store.Video
	err := s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindCreate,
		Keys: []string{VideosKey},
		Fn: func(ctx context.Context) error {
			v, err := s.store.CreateVideo(ctx, create)
			created = v
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, userID string, update *store.UpdateVideo) (*store.Video, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "title cannot be empty")
	}
	if update.Category != nil && strings.TrimSpace(*update.Category) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "category cannot be empty")
	}
	if (update.Views != nil && *update.Views < 0) || (update.Likes != nil && *update.Likes < 0) {
		return nil, errors.Wrap(ErrInvalidArgument, "counters cannot be negative")
	}
	if isEmptyUpdate(update) {
		return nil, errors.Wrap(ErrInvalidArgument, "nothing to update")
	}
	update.CreatedBy = userID

	var updated *store.Video
	err := s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindUpdate,
		Keys: []string{VideosKey},
		Fn: func(ctx context.Context) error {
			v, err := s.store.UpdateVideo(ctx, update)
			updated = v
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, videoID string) error {
	return s.coordinator.Mutate(ctx, cache.MutationFunc{
		Name: KindDelete,
		Keys: []string{VideosKey},
		Fn: func(ctx context.Context) error {
			return s.store.DeleteVideo(ctx, &store.DeleteVideo{ID: videoID, CreatedBy: userID})
		},
	})
}

func isEmptyUpdate(u *store.UpdateVideo) bool {
	return u.Title == nil && u.Description == nil && u.VideoURL == nil &&
		u.Thumbnail == nil && u.Duration == nil && u.Category == nil &&
		u.RecipeID == nil && u.Views == nil && u.Likes == nil
}
