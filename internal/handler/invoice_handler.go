package handler

import (
	"net/http"

	"factoryerp/internal/middleware"
	"factoryerp/internal/service"
	"factoryerp/pkg/pagination"
	"factoryerp/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService service.PaymentService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, paymentService service.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequireRole("admin", "accountant"), h.CreateInvoice)
		invoices.GET("", middleware.RequireAuth(), h.ListInvoices)
		invoices.GET("/:id", middleware.RequireAuth(), h.GetInvoice)
		invoices.PUT("/:id", middleware.RequireRole("admin", "accountant"), h.UpdateInvoice)
		invoices.DELETE("/:id", middleware.RequireRole("admin", "accountant"), h.DeleteInvoice)
		invoices.PUT("/:id/cancel", middleware.RequireRole("admin", "accountant"), h.CancelInvoice)
		invoices.POST("/:id/payments", middleware.RequireRole("admin", "accountant"), h.AddPayment)
		invoices.GET("/:id/payments", middleware.RequireAuth(), h.ListPayments)
	}
}

// CreateInvoice creates a new invoice with computed totals and a generated number
// @Summary      Create invoice
// @Description  Creates an invoice from line items, computing totals, tax breakdown and a sequential document number
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated, filtered invoice list with aggregate stats
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices with total/paid/pending/overdue aggregates
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Filter by status"
// @Param        customer_id  query     string  false  "Filter by customer"
// @Param        from         query     string  false  "Issue date lower bound (YYYY-MM-DD)"
// @Param        to           query     string  false  "Issue date upper bound (YYYY-MM-DD)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=service.InvoiceListResult}
// @Failure      400          {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		IssuedFrom: c.Query("from"),
		IssuedTo:   c.Query("to"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetInvoice returns one invoice with items, payments and tax groups
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice replaces mutable fields and recomputes all totals
// @Summary      Update invoice
// @Description  Updates an invoice (full item-set replacement) unless it is PAID or CANCELLED
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Update Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// CancelInvoice moves a non-paid invoice to CANCELLED
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/invoices/{id}/cancel [put]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes an invoice that has no payments
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// AddPayment records a payment against an invoice
// @Summary      Add payment
// @Description  Records a payment, bumps amount_paid and derives the new status atomically
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Invoice ID"
// @Param        payload  body      service.AddPaymentRequest  true  "Add Payment Payload"
// @Success      201      {object}  response.Response{data=service.AddPaymentResult}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	var req service.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.paymentService.AddPayment(c.Request.Context(), c.Param("id"), req, middleware.ActingUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListPayments returns the payment ledger of an invoice
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
