package v1

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/internal/profile"
	apierrors "github.com/hrygo/cartsync/server/internal/errors"
	"github.com/hrygo/cartsync/server/service/video"
	"github.com/hrygo/cartsync/store"
)

// MockVideoService is a hand-written video.Service recording its calls.
type MockVideoService struct {
	mu sync.Mutex

	videos  []*store.Video
	err     error
	created *store.Video
	updated *store.UpdateVideo
	calls   []string
}

func (m *MockVideoService) List(ctx context.Context) ([]*store.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "List")
	return m.videos, m.err
}

func (m *MockVideoService) Create(ctx context.Context, userID string, create *store.Video) (*store.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Create "+userID)
	if m.err != nil {
		return nil, m.err
	}
	v := *create
	v.ID = "v-new"
	v.CreatedBy = userID
	m.created = &v
	return &v, nil
}

func (m *MockVideoService) Update(ctx context.Context, userID string, update *store.UpdateVideo) (*store.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Update "+userID+" "+update.ID)
	if m.err != nil {
		return nil, m.err
	}
	m.updated = update
	v := &store.Video{ID: update.ID, CreatedBy: userID}
	if update.Title != nil {
		v.Title = *update.Title
	}
	return v, nil
}

func (m *MockVideoService) Delete(ctx context.Context, userID, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Delete "+userID+" "+videoID)
	return m.err
}

var _ video.Service = (*MockVideoService)(nil)

func newVideoTestServer(t *testing.T, svc video.Service) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewAPIV1Service(&profile.Profile{RateLimit: 1000, RateBurst: 1000}, &MockCartService{}, svc, testFormatter, nil, nil).RegisterRoutes(e)
	return e
}

func TestListVideos(t *testing.T) {
	svc := &MockVideoService{videos: []*store.Video{
		{ID: "v1", Title: "Tarte", Category: "desserts", RecipeID: "tarte", CreatedBy: "alice",
			Author: &store.VideoAuthor{DisplayName: "Alice", Email: "alice@example.com"},
			Recipe: &store.VideoRecipe{Title: "Tarte aux pommes"}},
		{ID: "v2", Title: "Pâte brisée", Category: "bases", CreatedBy: "ghost"},
	}}
	e := newVideoTestServer(t, svc)

	rec := do(e, http.MethodGet, "/api/v1/videos", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[[]VideoResponse](t, rec)
	require.Len(t, resp, 2)
	require.NotNil(t, resp[0].Profiles)
	assert.Equal(t, "Alice", resp[0].Profiles.DisplayName)
	require.NotNil(t, resp[0].Recipes)
	assert.Equal(t, "Tarte aux pommes", resp[0].Recipes.Title)
	assert.Nil(t, resp[1].Profiles)
	assert.Nil(t, resp[1].Recipes)
	assert.Contains(t, rec.Body.String(), `"profiles":null`)
}

func TestCreateVideo(t *testing.T) {
	svc := &MockVideoService{}
	e := newVideoTestServer(t, svc)

	rec := do(e, http.MethodPost, "/api/v1/videos", "bob", `{"title":"Pâte brisée","category":"bases","recipe_id":"pate"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[VideoResponse](t, rec)
	assert.Equal(t, "v-new", resp.ID)
	assert.Equal(t, "bob", resp.CreatedBy)
	assert.Equal(t, "pate", svc.created.RecipeID)

	rec = do(e, http.MethodPost, "/api/v1/videos", "", `{"title":"x","category":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.err = errors.Wrap(video.ErrInvalidArgument, "title is required")
	rec = do(e, http.MethodPost, "/api/v1/videos", "bob", `{"category":"bases"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidArgument, decode[ErrorResponse](t, rec).Code)
}

func TestUpdateVideo(t *testing.T) {
	svc := &MockVideoService{}
	e := newVideoTestServer(t, svc)

	rec := do(e, http.MethodPatch, "/api/v1/videos/v1", "alice", `{"title":"Tarte fine","likes":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Tarte fine", decode[VideoResponse](t, rec).Title)
	require.NotNil(t, svc.updated.Likes)
	assert.Equal(t, int64(4), *svc.updated.Likes)
	assert.Nil(t, svc.updated.Description)

	svc.err = errors.Wrap(store.ErrNotFound, "failed to update video")
	rec = do(e, http.MethodPatch, "/api/v1/videos/v1", "bob", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteVideo(t *testing.T) {
	svc := &MockVideoService{}
	e := newVideoTestServer(t, svc)

	rec := do(e, http.MethodDelete, "/api/v1/videos/v1", "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"Delete alice v1"}, svc.calls)

	svc.err = mutationFailure(t, errors.New("permission denied"))
	rec = do(e, http.MethodDelete, "/api/v1/videos/v1", "alice", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVideoRoutesOptional(t *testing.T) {
	e := newTestServer(t, &MockCartService{})
	rec := do(e, http.MethodGet, "/api/v1/videos", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
