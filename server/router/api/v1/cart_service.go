package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cartsync/internal/cartref"
	"github.com/hrygo/cartsync/internal/money"
	apierrors "github.com/hrygo/cartsync/server/internal/errors"
	"github.com/hrygo/cartsync/server/service/cart"
	"github.com/hrygo/cartsync/store"
)

// Price is an amount with its display form.
type Price struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func (s *APIV1Service) price(m money.Money) Price {
	p := Price{Cents: m.Cents()}
	if s.Formatter != nil {
		p.Formatted = s.Formatter.FormatPrice(m)
	}
	return p
}

// CartSummaryResponse is one row of the main cart view.
type CartSummaryResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	SourceType cartref.SourceType `json:"source_type"`
	Label      string             `json:"label"`
	Badge      string             `json:"badge"`
	Icon       string             `json:"icon"`
	ItemCount  int                `json:"item_count"`
	Total      Price              `json:"total"`
	DetailLink string             `json:"detail_link"`
}

// TotalsResponse are the grand totals of the main cart view.
type TotalsResponse struct {
	Subtotal Price `json:"subtotal"`
	Shipping Price `json:"shipping"`
	Total    Price `json:"total"`
}

// CartOverviewResponse is the main cart view.
type CartOverviewResponse struct {
	Carts               []CartSummaryResponse `json:"carts"`
	Totals              TotalsResponse        `json:"totals"`
	Empty               bool                  `json:"empty"`
	Degraded            []string              `json:"degraded,omitempty"`
	RecipeTotalsPending bool                  `json:"recipe_totals_pending"`
}

// GetCartOverview returns the aggregated carts of the caller.
// GET /api/v1/carts
func (s *APIV1Service) GetCartOverview(c echo.Context) error {
	overview, err := s.CartService.Overview(c.Request().Context(), userID(c))
	if err != nil {
		return s.writeError(c, err)
	}

	resp := CartOverviewResponse{
		Carts: make([]CartSummaryResponse, 0, len(overview.Summaries)),
		Totals: TotalsResponse{
			Subtotal: s.price(overview.Totals.Subtotal),
			Shipping: s.price(overview.Totals.Shipping),
			Total:    s.price(overview.Totals.Total),
		},
		Empty:               overview.Empty,
		Degraded:            overview.Degraded,
		RecipeTotalsPending: overview.RecipeTotalsPending,
	}
	query := c.QueryParams()
	for _, sum := range overview.Summaries {
		ref := cartref.Resolve(sum.SourceType)
		resp.Carts = append(resp.Carts, CartSummaryResponse{
			ID:         sum.ID,
			Name:       sum.Name,
			SourceType: sum.SourceType,
			Label:      ref.Label,
			Badge:      ref.Badge,
			Icon:       ref.Icon,
			ItemCount:  sum.ItemCount,
			Total:      s.price(sum.Total),
			DetailLink: cartref.DetailTarget(sum.SourceType, sum.ID, query),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// CartItemResponse is one cart line.
type CartItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   Price  `json:"unit_price"`
	LineTotal   Price  `json:"line_total"`
	Resolved    bool   `json:"resolved"`
}

func (s *APIV1Service) items(list []cart.Item) []CartItemResponse {
	out := make([]CartItemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, CartItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ImageURL:    it.ImageURL,
			Quantity:    it.Quantity,
			UnitPrice:   s.price(it.UnitPrice),
			LineTotal:   s.price(it.LineTotal),
			Resolved:    it.Resolved,
		})
	}
	return out
}

// PersonalCartResponse is the personal cart detail. ID is empty until the
// first item is added.
type PersonalCartResponse struct {
	ID        string             `json:"id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  Price              `json:"subtotal"`
}

// GetPersonalCart returns the personal cart of the caller.
// GET /api/v1/carts/personal
func (s *APIV1Service) GetPersonalCart(c echo.Context) error {
	view, err := s.CartService.PersonalCart(c.Request().Context(), userID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	resp := PersonalCartResponse{
		Items:     s.items(view.Items),
		ItemCount: view.ItemCount,
		Subtotal:  s.price(view.Subtotal),
	}
	if view.Cart != nil {
		resp.ID = view.Cart.ID
	}
	return c.JSON(http.StatusOK, resp)
}

// AddPersonalItemRequest is the body of POST /carts/personal/items.
type AddPersonalItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

// AddPersonalItem adds a product to the personal cart of the caller.
// POST /api/v1/carts/personal/items
func (s *APIV1Service) AddPersonalItem(c echo.Context) error {
	var req AddPersonalItemRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	if req.ProductID == "" {
		return s.writeError(c, apierrors.InvalidArgument("product_id is required"))
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := s.CartService.AddPersonalItem(c.Request().Context(), userID(c), req.ProductID, req.Quantity); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdatePersonalItemRequest is the body of PATCH /carts/personal/items/:id.
type UpdatePersonalItemRequest struct {
	Quantity int32 `json:"quantity"`
}

// UpdatePersonalItem changes the quantity of a personal cart line.
// PATCH /api/v1/carts/personal/items/:id
func (s *APIV1Service) UpdatePersonalItem(c echo.Context) error {
	var req UpdatePersonalItemRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	if err := s.CartService.UpdatePersonalItemQuantity(c.Request().Context(), userID(c), c.Param("id"), req.Quantity); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeletePersonalItem removes a line from the personal cart.
// DELETE /api/v1/carts/personal/items/:id
func (s *APIV1Service) DeletePersonalItem(c echo.Context) error {
	if err := s.CartService.RemovePersonalItem(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RecipeCartResponse is a recipe cart, with items when fetched in detail.
type RecipeCartResponse struct {
	ID         string             `json:"id"`
	RecipeID   string             `json:"recipe_id"`
	Name       string             `json:"name"`
	CreatedTs  int64              `json:"created_ts"`
	Items      []CartItemResponse `json:"items,omitempty"`
	ItemCount  int                `json:"item_count"`
	Total      *Price             `json:"total,omitempty"`
	DetailLink string             `json:"detail_link"`
}

func recipeCartResponse(rc *store.RecipeCart) RecipeCartResponse {
	return RecipeCartResponse{
		ID:         rc.ID,
		RecipeID:   rc.RecipeID,
		Name:       rc.CartName,
		CreatedTs:  rc.CreatedTs,
		DetailLink: cartref.DetailTarget(cartref.Recipe, rc.ID, nil),
	}
}

// ListRecipeCarts lists the recipe carts of the caller.
// GET /api/v1/carts/recipes
func (s *APIV1Service) ListRecipeCarts(c echo.Context) error {
	list, err := s.CartService.RecipeCarts(c.Request().Context(), userID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	resp := make([]RecipeCartResponse, 0, len(list))
	for _, rc := range list {
		resp = append(resp, recipeCartResponse(rc))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetRecipeCart returns one recipe cart with its items.
// GET /api/v1/carts/recipes/:id
func (s *APIV1Service) GetRecipeCart(c echo.Context) error {
	detail, err := s.CartService.RecipeCart(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	resp := recipeCartResponse(detail.Cart)
	resp.Items = s.items(detail.Items)
	resp.ItemCount = detail.ItemCount
	total := s.price(detail.Total)
	resp.Total = &total
	return c.JSON(http.StatusOK, resp)
}

// DeleteRecipeCart removes a recipe cart and its items.
// DELETE /api/v1/carts/recipes/:id
func (s *APIV1Service) DeleteRecipeCart(c echo.Context) error {
	if err := s.CartService.RemoveRecipeCart(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteRecipeCartItem removes one ingredient from a recipe cart.
// DELETE /api/v1/carts/recipes/:id/items/:itemId
func (s *APIV1Service) DeleteRecipeCartItem(c echo.Context) error {
	if err := s.CartService.RemoveRecipeCartItem(c.Request().Context(), userID(c), c.Param("id"), c.Param("itemId")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PreconfiguredCartResponse is an active bundle.
type PreconfiguredCartResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Items       []CartItemResponse `json:"items"`
	Total       Price              `json:"total"`
}

// ListPreconfiguredCarts lists the active bundles.
// GET /api/v1/carts/preconfigured
func (s *APIV1Service) ListPreconfiguredCarts(c echo.Context) error {
	list, err := s.CartService.PreconfiguredCarts(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	resp := make([]PreconfiguredCartResponse, 0, len(list))
	for _, b := range list {
		lines := make([]cart.Item, 0, len(b.Items))
		var total money.Money
		for _, it := range b.Items {
			item := cart.FromPreconfiguredItem(it)
			total = total.Add(item.LineTotal)
			lines = append(lines, item)
		}
		resp = append(resp, PreconfiguredCartResponse{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Items:       s.items(lines),
			Total:       s.price(total),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ApplyPreconfiguredCart copies a bundle into the caller's personal cart.
// POST /api/v1/carts/preconfigured/:id/apply
func (s *APIV1Service) ApplyPreconfiguredCart(c echo.Context) error {
	if err := s.CartService.ApplyPreconfiguredCart(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
