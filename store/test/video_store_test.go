package test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/store"
)

func TestVideoStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.GetDriver().Insert(ctx, &store.Insert{Table: "profiles", Values: store.Record{
		"id": "alice", "display_name": "Alice", "email": "alice@example.com",
	}})
	require.NoError(t, err)
	_, err = ts.GetDriver().Insert(ctx, &store.Insert{Table: "recipes", Values: store.Record{
		"id": "tarte", "title": "Tarte aux pommes",
	}})
	require.NoError(t, err)

	tarte, err := ts.CreateVideo(ctx, &store.Video{
		Title:     "Tarte en 20 minutes",
		Category:  "desserts",
		RecipeID:  "tarte",
		CreatedBy: "alice",
		CreatedTs: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tarte.ID)
	require.Zero(t, tarte.Views)

	// No profile row for bob, no recipe.
	loose, err := ts.CreateVideo(ctx, &store.Video{
		Title:     "Pâte brisée",
		Category:  "bases",
		CreatedBy: "bob",
		CreatedTs: 200,
	})
	require.NoError(t, err)

	list, err := ts.ListVideos(ctx, &store.FindVideo{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, loose.ID, list[0].ID)
	require.Nil(t, list[0].Author)
	require.Nil(t, list[0].Recipe)
	require.Equal(t, "", list[0].RecipeID)
	require.NotNil(t, list[1].Author)
	require.Equal(t, "Alice", list[1].Author.DisplayName)
	require.NotNil(t, list[1].Recipe)
	require.Equal(t, "Tarte aux pommes", list[1].Recipe.Title)

	likes := int64(3)
	title := "Tarte fine en 20 minutes"
	updated, err := ts.UpdateVideo(ctx, &store.UpdateVideo{ID: tarte.ID, CreatedBy: "alice", Title: &title, Likes: &likes})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, int64(3), updated.Likes)

	_, err = ts.UpdateVideo(ctx, &store.UpdateVideo{ID: tarte.ID, CreatedBy: "bob", Title: &title})
	require.True(t, errors.Is(err, store.ErrNotFound))

	err = ts.DeleteVideo(ctx, &store.DeleteVideo{ID: tarte.ID, CreatedBy: "bob"})
	require.True(t, errors.Is(err, store.ErrNotFound))
	require.NoError(t, ts.DeleteVideo(ctx, &store.DeleteVideo{ID: tarte.ID, CreatedBy: "alice"}))

	author := "alice"
	list, err = ts.ListVideos(ctx, &store.FindVideo{CreatedBy: &author})
	require.NoError(t, err)
	require.Empty(t, list)
}
