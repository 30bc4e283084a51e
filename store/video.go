package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/store/sanitize"
)

const (
	videoTable   = "videos"
	profileTable = "profiles"
	recipeTable  = "recipes"
)

// Aliases under which a video embeds its author profile and its recipe.
const (
	AuthorRelation = "profiles"
	RecipeRelation = "recipes"
)

var videoColumns = []string{
	"id", "title", "description", "video_url", "thumbnail", "duration",
	"views", "likes", "category", "recipe_id", "created_by", "created_ts",
}

// VideoAuthor is the profile of the user who posted a video.
type VideoAuthor struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// VideoRecipe is the recipe a video demonstrates.
type VideoRecipe struct {
	Title string `json:"title"`
}

// Video is a cooking video, optionally tied to a recipe. Author and Recipe
// are nil when the relation is absent or could not be resolved.
type Video struct {
	ID          string
	Title       string
	Description string
	VideoURL    string
	Thumbnail   string
	Duration    string
	Views       int64
	Likes       int64
	Category    string
	RecipeID    string
	CreatedBy   string
	CreatedTs   int64

	Author *VideoAuthor
	Recipe *VideoRecipe
}

type FindVideo struct {
	ID        *string
	CreatedBy *string
}

// UpdateVideo changes the non-nil fields of the video ID posted by CreatedBy.
type UpdateVideo struct {
	ID        string
	CreatedBy string

	Title       *string
	Description *string
	VideoURL    *string
	Thumbnail   *string
	Duration    *string
	Category    *string
	RecipeID    *string
	Views       *int64
	Likes       *int64
}

type DeleteVideo struct {
	ID        string
	CreatedBy string
}

func videoJoins() []Join {
	return []Join{
		{As: AuthorRelation, Table: profileTable, ForeignKey: "created_by", Columns: []string{"display_name", "email"}},
		{As: RecipeRelation, Table: recipeTable, ForeignKey: "recipe_id", Columns: []string{"title"}},
	}
}

// nullable stores an empty optional reference as NULL so the join reports
// it as absent rather than unresolved.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateVideo stores a new video. Views and likes always start at zero.
func (s *Store) CreateVideo(ctx context.Context, create *Video) (*Video, error) {
	if create.ID == "" {
		create.ID = s.newID()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = s.now().Unix()
	}
	record, err := s.driver.Insert(ctx, &Insert{
		Table: videoTable,
		Values: Record{
			"id":          create.ID,
			"title":       create.Title,
			"description": create.Description,
			"video_url":   create.VideoURL,
			"thumbnail":   create.Thumbnail,
			"duration":    create.Duration,
			"views":       int64(0),
			"likes":       int64(0),
			"category":    create.Category,
			"recipe_id":   nullable(create.RecipeID),
			"created_by":  create.CreatedBy,
			"created_ts":  create.CreatedTs,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create video")
	}
	return convertVideo(record)
}

// ListVideos returns videos newest first with their author and recipe.
func (s *Store) ListVideos(ctx context.Context, find *FindVideo) ([]*Video, error) {
	sel := &Select{
		Table:   videoTable,
		Columns: videoColumns,
		Joins:   videoJoins(),
		OrderBy: []Order{{Column: "created_ts", Desc: true}, {Column: "id"}},
	}
	if find.ID != nil {
		sel.Filters = append(sel.Filters, Eq("id", *find.ID))
	}
	if find.CreatedBy != nil {
		sel.Filters = append(sel.Filters, Eq("created_by", *find.CreatedBy))
	}

	records, err := s.driver.Select(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list videos")
	}
	records = sanitize.DecodeAll(records, AuthorRelation, RecipeRelation)
	list := make([]*Video, 0, len(records))
	for _, record := range records {
		video, err := convertVideo(record)
		if err != nil {
			return nil, err
		}
		list = append(list, video)
	}
	return list, nil
}

func (s *Store) UpdateVideo(ctx context.Context, update *UpdateVideo) (*Video, error) {
	values := Record{}
	if update.Title != nil {
		values["title"] = *update.Title
	}
	if update.Description != nil {
		values["description"] = *update.Description
	}
	if update.VideoURL != nil {
		values["video_url"] = *update.VideoURL
	}
	if update.Thumbnail != nil {
		values["thumbnail"] = *update.Thumbnail
	}
	if update.Duration != nil {
		values["duration"] = *update.Duration
	}
	if update.Category != nil {
		values["category"] = *update.Category
	}
	if update.RecipeID != nil {
		values["recipe_id"] = nullable(*update.RecipeID)
	}
	if update.Views != nil {
		values["views"] = *update.Views
	}
	if update.Likes != nil {
		values["likes"] = *update.Likes
	}
	if len(values) == 0 {
		return nil, errors.New("no video fields to update")
	}

	record, err := s.driver.Update(ctx, &Update{
		Table:   videoTable,
		Filters: []Filter{Eq("id", update.ID), Eq("created_by", update.CreatedBy)},
		Values:  values,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update video")
	}
	return convertVideo(record)
}

func (s *Store) DeleteVideo(ctx context.Context, delete *DeleteVideo) error {
	err := s.driver.Delete(ctx, &Delete{
		Table:   videoTable,
		Filters: []Filter{Eq("id", delete.ID), Eq("created_by", delete.CreatedBy)},
	})
	return errors.Wrap(err, "failed to delete video")
}

func convertVideo(r Record) (*Video, error) {
	views, err := recordInt64(r, "views")
	if err != nil {
		return nil, errors.Wrap(err, "invalid video")
	}
	likes, err := recordInt64(r, "likes")
	if err != nil {
		return nil, errors.Wrap(err, "invalid video")
	}
	createdTs, err := recordInt64(r, "created_ts")
	if err != nil {
		return nil, errors.Wrap(err, "invalid video")
	}
	return &Video{
		ID:          recordString(r, "id"),
		Title:       recordString(r, "title"),
		Description: recordString(r, "description"),
		VideoURL:    recordString(r, "video_url"),
		Thumbnail:   recordString(r, "thumbnail"),
		Duration:    recordString(r, "duration"),
		Views:       views,
		Likes:       likes,
		Category:    recordString(r, "category"),
		RecipeID:    recordString(r, "recipe_id"),
		CreatedBy:   recordString(r, "created_by"),
		CreatedTs:   createdTs,
		Author:      sanitize.Resolve[VideoAuthor](r, AuthorRelation).Ptr(),
		Recipe:      sanitize.Resolve[VideoRecipe](r, RecipeRelation).Ptr(),
	}, nil
}
