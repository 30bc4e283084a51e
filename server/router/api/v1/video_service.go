package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/cartsync/server/internal/errors"
	"github.com/hrygo/cartsync/store"
)

// VideoAuthorResponse is the profile of the user who posted a video.
type VideoAuthorResponse struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// VideoRecipeResponse is the recipe a video demonstrates.
type VideoRecipeResponse struct {
	Title string `json:"title"`
}

// VideoResponse is one video of the catalog. Profiles and Recipes are null
// when the relation is absent or could not be resolved.
type VideoResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	VideoURL    string               `json:"video_url"`
	Thumbnail   string               `json:"thumbnail"`
	Duration    string               `json:"duration"`
	Views       int64                `json:"views"`
	Likes       int64                `json:"likes"`
	Category    string               `json:"category"`
	RecipeID    string               `json:"recipe_id,omitempty"`
	CreatedBy   string               `json:"created_by"`
	CreatedTs   int64                `json:"created_ts"`
	Profiles    *VideoAuthorResponse `json:"profiles"`
	Recipes     *VideoRecipeResponse `json:"recipes"`
}

func videoResponse(v *store.Video) VideoResponse {
	resp := VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoURL:    v.VideoURL,
		Thumbnail:   v.Thumbnail,
		Duration:    v.Duration,
		Views:       v.Views,
		Likes:       v.Likes,
		Category:    v.Category,
		RecipeID:    v.RecipeID,
		CreatedBy:   v.CreatedBy,
		CreatedTs:   v.CreatedTs,
	}
	if v.Author != nil {
		resp.Profiles = &VideoAuthorResponse{DisplayName: v.Author.DisplayName, Email: v.Author.Email}
	}
	if v.Recipe != nil {
		resp.Recipes = &VideoRecipeResponse{Title: v.Recipe.Title}
	}
	return resp
}

// ListVideos returns the video catalog, newest first.
// GET /api/v1/videos
func (s *APIV1Service) ListVideos(c echo.Context) error {
	list, err := s.VideoService.List(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	resp := make([]VideoResponse, 0, len(list))
	for _, v := range list {
		resp = append(resp, videoResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateVideoRequest is the body of POST /videos.
type CreateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration"`
	Category    string `json:"category"`
	RecipeID    string `json:"recipe_id"`
}

// CreateVideo posts a video as the caller.
// POST /api/v1/videos
func (s *APIV1Service) CreateVideo(c echo.Context) error {
	var req CreateVideoRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	created, err := s.VideoService.Create(c.Request().Context(), userID(c), &store.Video{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Thumbnail:   req.Thumbnail,
		Duration:    req.Duration,
		Category:    req.Category,
		RecipeID:    req.RecipeID,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, videoResponse(created))
}

// UpdateVideoRequest is the body of PATCH /videos/:id. Absent fields are
// left unchanged.
type UpdateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
	Thumbnail   *string `json:"thumbnail"`
	Duration    *string `json:"duration"`
	Category    *string `json:"category"`
	RecipeID    *string `json:"recipe_id"`
	Views       *int64  `json:"views"`
	Likes       *int64  `json:"likes"`
}

// UpdateVideo changes a video posted by the caller.
// PATCH /api/v1/videos/:id
func (s *APIV1Service) UpdateVideo(c echo.Context) error {
	var req UpdateVideoRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	updated, err := s.VideoService.Update(c.Request().Context(), userID(c), &store.UpdateVideo{
		ID:          c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Thumbnail:   req.Thumbnail,
		Duration:    req.Duration,
		Category:    req.Category,
		RecipeID:    req.RecipeID,
		Views:       req.Views,
		Likes:       req.Likes,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, videoResponse(updated))
}

// DeleteVideo removes a video posted by the caller.
// DELETE /api/v1/videos/:id
func (s *APIV1Service) DeleteVideo(c echo.Context) error {
	if err := s.VideoService.Delete(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
