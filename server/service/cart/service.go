// Package cart aggregates a user's personal and recipe carts into one view and
// applies cart mutations.
//
// Every read goes through a cache.Query bound to a key from keys.go, so
// concurrent requests share one backing-store round trip. Every write is a
// cache.Mutation: the store is changed first, then the keys it affects are
// invalidated and the next read recomputes from fresh data.
package cart

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// ErrInvalidArgument is returned for requests rejected before reaching the store.
var ErrInvalidArgument = errors.New("invalid argument")

type service struct {
	store       Store
	cache       *cache.QueryCache
	coordinator *cache.Coordinator
	logger      *slog.Logger
}

// NewService creates a cart service reading through qc.
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

func (s *service) personalCartQuery(userID string) *cache.Query[*store.PersonalCart] {
	return cache.NewQuery(s.cache, PersonalCartKey(userID), func(ctx context.Context) (*store.PersonalCart, error) {
		return s.store.GetPersonalCart(ctx, userID)
	})
}

func (s *service) personalItemsQuery(userID string) *cache.Query[[]Item] {
	return cache.NewQuery(s.cache, PersonalItemsKey(userID), func(ctx context.Context) ([]Item, error) {
		cart, err := s.personalCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return []Item{}, nil
		}
		list, err := s.store.ListPersonalCartItems(ctx, &store.FindPersonalCartItem{PersonalCartID: &cart.ID})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list items of personal cart %s", cart.ID)
		}
		return FromPersonalItems(list), nil
	})
}

func (s *service) recipeCartsQuery(userID string) *cache.Query[[]*store.RecipeCart] {
	return cache.NewQuery(s.cache, RecipeCartsKey(userID), func(ctx context.Context) ([]*store.RecipeCart, error) {
		list, err := s.store.ListRecipeCarts(ctx, &store.FindRecipeCart{UserID: &userID})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list recipe carts of %s", userID)
		}
		return list, nil
	})
}

// recipeDetailQuery is keyed by cart id only; callers check ownership first.
func (s *service) recipeDetailQuery(rc *store.RecipeCart) *cache.Query[RecipeDetail] {
	return cache.NewQuery(s.cache, RecipeItemsKey(rc.ID), func(ctx context.Context) (RecipeDetail, error) {
		list, err := s.store.ListRecipeCartItems(ctx, &store.FindRecipeCartItem{RecipeCartID: &rc.ID})
		if err != nil {
			return RecipeDetail{}, errors.Wrapf(err, "failed to list items of recipe cart %s", rc.ID)
		}
		return newRecipeDetail(rc, FromRecipeItems(list)), nil
	})
}

func (s *service) preconfiguredQuery() *cache.Query[[]*store.PreconfiguredCart] {
	return cache.NewQuery(s.cache, PreconfiguredCartsKey(), func(ctx context.Context) ([]*store.PreconfiguredCart, error) {
		active := true
		list, err := s.store.ListPreconfiguredCarts(ctx, &store.FindPreconfiguredCart{IsActive: &active})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list preconfigured carts")
		}
		return list, nil
	})
}

func (s *service) personalCart(ctx context.Context, userID string) (*store.PersonalCart, error) {
	entry, err := s.personalCartQuery(userID).Get(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *service) Overview(ctx context.Context, userID string) (*Overview, error) {
	var (
		in Input
		g  errgroup.Group
	)
	// Sources fail independently, so neither goroutine returns an error.
	g.Go(func() error {
		cart, err := s.personalCart(ctx, userID)
		if err != nil {
			in.PersonalErr = err
			return nil
		}
		if cart == nil {
			return nil
		}
		items, err := s.personalItemsQuery(userID).Get(ctx)
		if err != nil {
			in.PersonalErr = err
			return nil
		}
		in.PersonalCart = cart
		in.PersonalItems = items.Value
		return nil
	})
	g.Go(func() error {
		carts, err := s.recipeCartsQuery(userID).Get(ctx)
		if err != nil {
			in.RecipeErr = err
			return nil
		}
		in.RecipeCarts = carts.Value
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.RecipeDetails = make(map[string]RecipeDetail, len(in.RecipeCarts))
	for _, rc := range in.RecipeCarts {
		if entry := s.recipeDetailQuery(rc).Peek(); entry.Present {
			in.RecipeDetails[rc.ID] = entry.Value
		}
	}

	overview := Aggregate(in)
	if len(overview.Degraded) > 0 {
		s.logger.Warn("cart overview degraded",
			slog.String("user", userID),
			slog.Any("sources", overview.Degraded),
			slog.Any("personal_error", in.PersonalErr),
			slog.Any("recipe_error", in.RecipeErr))
	}
	return &overview, nil
}

func (s *service) PersonalCart(ctx context.Context, userID string) (*PersonalCartView, error) {
	cart, err := s.personalCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &PersonalCartView{Cart: cart, Items: []Item{}}
	if cart == nil {
		return view, nil
	}
	entry, err := s.personalItemsQuery(userID).Get(ctx)
	if err != nil {
		return nil, err
	}
	if entry.Value != nil {
		view.Items = entry.Value
	}
	view.ItemCount = len(view.Items)
	for _, it := range view.Items {
		view.Subtotal = view.Subtotal.Add(it.LineTotal)
	}
	return view, nil
}

func (s *service) RecipeCarts(ctx context.Context, userID string) ([]*store.RecipeCart, error) {
	entry, err := s.recipeCartsQuery(userID).Get(ctx)
	if err != nil {
		return nil, err
	}
	if entry.Value == nil {
		return []*store.RecipeCart{}, nil
	}
	return entry.Value, nil
}

// ownedRecipeCart finds recipeCartID among the user's recipe carts.
func (s *service) ownedRecipeCart(ctx context.Context, userID, recipeCartID string) (*store.RecipeCart, error) {
	carts, err := s.RecipeCarts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rc := range carts {
		if rc.ID == recipeCartID {
			return rc, nil
		}
	}
	return nil, errors.Wrapf(store.ErrNotFound, "recipe cart %s", recipeCartID)
}

func (s *service) RecipeCart(ctx context.Context, userID, recipeCartID string) (*RecipeDetail, error) {
	rc, err := s.ownedRecipeCart(ctx, userID, recipeCartID)
	if err != nil {
		return nil, err
	}
	entry, err := s.recipeDetailQuery(rc).Get(ctx)
	if err != nil {
		return nil, err
	}
	detail := entry.Value
	if detail.Items == nil {
		detail.Items = []Item{}
	}
	return &detail, nil
}

func (s *service) PreconfiguredCarts(ctx context.Context) ([]*store.PreconfiguredCart, error) {
	entry, err := s.preconfiguredQuery().Get(ctx)
	if err != nil {
		return nil, err
	}
	if entry.Value == nil {
		return []*store.PreconfiguredCart{}, nil
	}
	return entry.Value, nil
}
