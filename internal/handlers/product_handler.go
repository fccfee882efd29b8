package handlers

import (
	"errors"

	"boutique/internal/apperror"
	"boutique/internal/models"
	"boutique/internal/services"
	"boutique/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const productsPage = "/products/add"

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	views    *Renderer
	guards   Guards
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, views *Renderer, guards Guards) *ProductHandler {
	return &ProductHandler{
		service:  service,
		views:    views,
		guards:   guards,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the browser product routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/addProduct", h.guards.Browser, h.HandleProductsPage)

	productRoutes := router.Group("/products", h.guards.Browser)
	productRoutes.Get("/add", h.HandleProductsPage)
	productRoutes.Post("/add", h.HandleCreateProductForm)
	productRoutes.Delete("/:id", h.HandleDeleteProductForm)
}

// RegisterAPIRoutes registers the token protected product routes. Writes
// need the admin role.
func (h *ProductHandler) RegisterAPIRoutes(router fiber.Router) {
	productRoutes := router.Group("/products", h.guards.Token)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.guards.Admin, h.HandleCreateProduct)
	productRoutes.Put("/:id", h.guards.Admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.guards.Admin, h.HandleDeleteProduct)
}

// HandleProductsPage renders the product list with its creation form.
func (h *ProductHandler) HandleProductsPage(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		log.Error().Err(err).Msg("Error getting all products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	return h.views.Render(c, fiber.StatusOK, "addProduct", "Add Product", fiber.Map{"products": products})
}

// HandleCreateProductForm creates a product from the browser form.
func (h *ProductHandler) HandleCreateProductForm(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return h.views.Redirect(c, productsPage, session.FlashError, "Invalid request body")
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return h.views.Redirect(c, productsPage, session.FlashError, joined(validationErrors(err)))
	}

	if err := h.service.CreateProduct(&product); err != nil {
		log.Error().Err(err).Msg("Error creating product")
		return h.views.Redirect(c, productsPage, session.FlashError, "Could not create product")
	}
	return h.views.Redirect(c, productsPage, session.FlashSuccess, "Product created")
}

// HandleDeleteProductForm deletes a product from the browser.
func (h *ProductHandler) HandleDeleteProductForm(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return h.views.Redirect(c, productsPage, session.FlashError, "Product not found")
		}
		log.Error().Err(err).Str("product_id", id).Msg("Error deleting product")
		return h.views.Redirect(c, productsPage, session.FlashError, "Could not delete product")
	}
	return h.views.Redirect(c, productsPage, session.FlashSuccess, "Product deleted")
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		return apiError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.Params("id"))
	if err != nil {
		return apiError(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

// parseProduct binds and validates a product body. A non-nil map is the
// 400 response to send.
func (h *ProductHandler) parseProduct(c *fiber.Ctx) (*models.Product, fiber.Map) {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return nil, fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		}
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return nil, fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		}
	}
	return &product, nil
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	product, problem := h.parseProduct(c)
	if problem != nil {
		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}
	if err := h.service.CreateProduct(product); err != nil {
		return apiError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	product, problem := h.parseProduct(c)
	if problem != nil {
		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}
	product.ID = c.Params("id")
	if err := h.service.UpdateProduct(product); err != nil {
		return apiError(c, err, "Could not update product")
	}

	updated, err := h.service.GetProductByID(product.ID)
	if err != nil {
		return apiError(c, err, "Could not retrieve product")
	}
	return c.JSON(updated)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(id); err != nil {
		return apiError(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"message": "Product " + id + " deleted successfully",
	})
}
