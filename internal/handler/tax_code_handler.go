package handler

import (
	"net/http"

	"factoryerp/internal/middleware"
	"factoryerp/internal/service"
	"factoryerp/pkg/pagination"
	"factoryerp/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxCodeHandler struct {
	taxCodeService service.TaxCodeService
}

func NewTaxCodeHandler(taxCodeService service.TaxCodeService) *TaxCodeHandler {
	return &TaxCodeHandler{taxCodeService: taxCodeService}
}

func (h *TaxCodeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/tax-codes", middleware.RequireAuth(), h.ListTaxCodes)
}

// ListTaxCodes returns the HSN registry with default rates for prefill
// @Summary      List tax codes
// @Tags         tax-codes
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/tax-codes [get]
func (h *TaxCodeHandler) ListTaxCodes(c *gin.Context) {
	params := pagination.Parse(c)

	codes, total, err := h.taxCodeService.ListTaxCodes(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"tax_codes": codes,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
