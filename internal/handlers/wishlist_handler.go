package handlers

import (
	"errors"

	"boutique/internal/apperror"
	"boutique/internal/middleware"
	"boutique/internal/services"
	"boutique/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const wishlistPage = "/wishlist"

// WishlistHandler handles the wishlist of the authenticated user. The user
// always comes from the gate's identity; the path only names the product.
type WishlistHandler struct {
	service *services.WishlistService
	views   *Renderer
	guards  Guards
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(service *services.WishlistService, views *Renderer, guards Guards) *WishlistHandler {
	return &WishlistHandler{
		service: service,
		views:   views,
		guards:  guards,
	}
}

// RegisterRoutes registers the browser wishlist routes.
func (h *WishlistHandler) RegisterRoutes(router fiber.Router) {
	wishlistRoutes := router.Group("/wishlist", h.guards.Browser)
	wishlistRoutes.Get("/", h.HandleWishlistPage)
	wishlistRoutes.Post("/:productId", h.HandleAdd)
	wishlistRoutes.Delete("/:productId", h.HandleRemove)
}

// RegisterAPIRoutes registers the token protected wishlist routes.
func (h *WishlistHandler) RegisterAPIRoutes(router fiber.Router) {
	wishlistRoutes := router.Group("/wishlist", h.guards.Token)
	wishlistRoutes.Get("/", h.HandleAPIList)
	wishlistRoutes.Post("/:productId", h.HandleAPIAdd)
	wishlistRoutes.Delete("/:productId", h.HandleAPIRemove)
}

// HandleWishlistPage renders the wishlist products in insertion order.
func (h *WishlistHandler) HandleWishlistPage(c *fiber.Ctx) error {
	items, err := h.service.Items(middleware.CurrentIdentity(c).User.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return h.views.Redirect(c, "/", session.FlashError, "User not found")
		}
		log.Error().Err(err).Msg("Error loading wishlist")
		return h.views.Redirect(c, "/", session.FlashError, "Error while loading the wishlist")
	}
	return h.views.Render(c, fiber.StatusOK, "wishlist", "Wishlist", fiber.Map{"wishlistItems": items})
}

// HandleAdd adds a product and goes back to the referring page.
func (h *WishlistHandler) HandleAdd(c *fiber.Ctx) error {
	outcome, err := h.service.Add(middleware.CurrentIdentity(c).User.ID, c.Params("productId"))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return h.views.Back(c, wishlistPage, session.FlashError, "Product or user not found")
		}
		log.Error().Err(err).Msg("Error adding to wishlist")
		return h.views.Back(c, wishlistPage, session.FlashError, "Error while adding to the wishlist")
	}
	if outcome == services.WishlistUnchanged {
		return h.views.Back(c, wishlistPage, session.FlashInfo, "This product is already in your wishlist")
	}
	return h.views.Back(c, wishlistPage, session.FlashSuccess, "Product added to your wishlist")
}

// HandleRemove removes a product and goes back to the referring page.
// Removing a product that is not in the wishlist is not an error.
func (h *WishlistHandler) HandleRemove(c *fiber.Ctx) error {
	if _, err := h.service.Remove(middleware.CurrentIdentity(c).User.ID, c.Params("productId")); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return h.views.Back(c, wishlistPage, session.FlashError, "User not found")
		}
		log.Error().Err(err).Msg("Error removing from wishlist")
		return h.views.Back(c, wishlistPage, session.FlashError, "Error while removing from the wishlist")
	}
	return h.views.Back(c, wishlistPage, session.FlashSuccess, "Product removed from your wishlist")
}

// HandleAPIList returns the wishlist products.
func (h *WishlistHandler) HandleAPIList(c *fiber.Ctx) error {
	items, err := h.service.Items(middleware.CurrentIdentity(c).User.ID)
	if err != nil {
		return apiError(c, err, "Could not retrieve wishlist")
	}
	return c.JSON(items)
}

// HandleAPIAdd adds a product; 201 when added, 200 when already present.
func (h *WishlistHandler) HandleAPIAdd(c *fiber.Ctx) error {
	outcome, err := h.service.Add(middleware.CurrentIdentity(c).User.ID, c.Params("productId"))
	if err != nil {
		return apiError(c, err, "Could not add to wishlist")
	}
	if outcome == services.WishlistUnchanged {
		return c.JSON(fiber.Map{"message": "Product already in wishlist", "added": false})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product added to wishlist", "added": true})
}

// HandleAPIRemove removes a product.
func (h *WishlistHandler) HandleAPIRemove(c *fiber.Ctx) error {
	outcome, err := h.service.Remove(middleware.CurrentIdentity(c).User.ID, c.Params("productId"))
	if err != nil {
		return apiError(c, err, "Could not remove from wishlist")
	}
	return c.JSON(fiber.Map{
		"message": "Product removed from wishlist",
		"removed": outcome == services.WishlistRemoved,
	})
}
