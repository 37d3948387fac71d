package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/service"
)

// ImportProductRequest represents import product request
type ImportProductRequest struct {
	SupplierID        string                  `json:"supplier_id" binding:"required"`
	SupplierProductID string                  `json:"supplier_product_id" binding:"required"`
	Overrides         service.ImportOverrides `json:"overrides"`
}

// HandleImportProduct handles POST /v1/products/import
func HandleImportProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ImportProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		product, err := catalog.ImportProductFromSupplier(c.Request.Context(), req.SupplierID, req.SupplierProductID, req.Overrides)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// HandleListProducts handles GET /v1/products
func HandleListProducts(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.ListProducts(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"count":    len(products),
		})
	}
}

// HandleGetProduct handles GET /v1/products/:id
func HandleGetProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := catalog.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// HandleSyncProduct handles POST /v1/products/:id/sync
func HandleSyncProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := catalog.SyncInventoryWithSupplier(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if product == nil {
			// the supplier no longer carries the product; the listing is left as is
			c.JSON(http.StatusOK, gin.H{"synced": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"synced":  true,
			"product": product,
		})
	}
}

// HandleBulkSync handles POST /v1/products/sync
func HandleBulkSync(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := catalog.BulkSyncInventory(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

// HandleProductMargin handles GET /v1/products/:id/margin
func HandleProductMargin(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		margin, err := catalog.Margin(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, margin)
	}
}

// HandleRepriceProduct handles POST /v1/products/:id/reprice
func HandleRepriceProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := catalog.RepriceProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// HandleDeleteProduct handles DELETE /v1/products/:id
func HandleDeleteProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
