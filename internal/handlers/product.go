package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/es"
	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/mykafka"
	"github.com/Skotchmaster/marketplace/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Indexer  *es.Indexer
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if err := h.Indexer.IndexProduct(c.Request().Context(), p); err != nil {
		logging.FromContext(c.Request().Context()).Error("product indexing failed", "product_id", p.ID, "error", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{})
	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if sellerID := parseIntDefault(c.QueryParam("seller_id"), 0); sellerID > 0 {
		q = q.Where("seller_id = ?", sellerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return serviceError(c, err)
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Category    *string          `json:"category"`
	Images      *[]string        `json:"images"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if req.Price == nil || req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}

	product := models.Product{
		SellerID: user.ID,
		Name:     *req.Name,
		Price:    *req.Price,
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Images != nil {
		product.Images = *req.Images
	}

	if err := h.DB.Create(&product).Error; err != nil {
		return serviceError(c, err)
	}

	h.index(c, &product)
	h.publish(c, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"seller_id":  product.SellerID,
		"name":       product.Name,
	})

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return serviceError(c, err)
	}
	if product.SellerID != user.ID && !user.Role.CanModerate() {
		return echo.NewHTTPError(http.StatusForbidden, "not your product")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "name required")
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
		product.Price = *req.Price
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
		}
		product.Quantity = *req.Quantity
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Images != nil {
		product.Images = *req.Images
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return serviceError(c, err)
	}

	h.index(c, &product)
	h.publish(c, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_updated",
		"product_id": product.ID,
		"name":       product.Name,
	})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return serviceError(c, err)
	}
	if product.SellerID != user.ID && !user.Role.CanModerate() {
		return echo.NewHTTPError(http.StatusForbidden, "not your product")
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return serviceError(c, err)
	}

	if err := h.Indexer.DeleteProduct(c.Request().Context(), id); err != nil {
		logging.FromContext(c.Request().Context()).Error("product deindexing failed", "product_id", id, "error", err)
	}
	h.publish(c, fmt.Sprint(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})

	return c.NoContent(http.StatusNoContent)
}
