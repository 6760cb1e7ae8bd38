package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/application/service"
	"github.com/mkatsoulis/tillpoint/internal/domain/enum"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/dto/request"
	"github.com/mkatsoulis/tillpoint/internal/presentation/http/dto/response"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// SaleHandler handles sale HTTP requests
type SaleHandler struct {
	saleService  *service.SaleService
	reconService *service.ReconciliationService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *service.SaleService, reconService *service.ReconciliationService) *SaleHandler {
	return &SaleHandler{
		saleService:  saleService,
		reconService: reconService,
	}
}

// Create handles creating a sale
func (h *SaleHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	input := &service.CreateSaleInput{
		CardDiscountCount: req.CardDiscountCount,
		PaymentMethod:     enum.ParsePaymentMethod(req.PaymentMethod),
		Items:             make([]service.SaleItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			response.BadRequest(c, "Invalid product ID: "+item.ProductID)
			return
		}
		input.Items = append(input.Items, service.SaleItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			IsTreat:   item.IsTreat,
		})
	}

	order, err := h.saleService.CreateSale(c.Request.Context(), *userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Sale created successfully", order)
}

// Get handles retrieving a sale
func (h *SaleHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	order, err := h.saleService.GetSale(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", order)
}

// Receipt returns the order with the coupon discount allocated across lines
func (h *SaleHandler) Receipt(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	receipt, err := h.reconService.OrderReceipt(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

// List handles listing sales
func (h *SaleHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	params := &repository.OrderFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    page,
			PerPage: perPage,
		},
	}
	params.Pagination.Validate()

	if sessionIDStr := c.Query("session_id"); sessionIDStr != "" {
		if sessionID, err := uuid.Parse(sessionIDStr); err == nil {
			params.SessionID = &sessionID
		}
	}
	if startDateStr := c.Query("start_date"); startDateStr != "" {
		if startDate, err := time.Parse("2006-01-02", startDateStr); err == nil {
			params.StartDate = &startDate
		}
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		if endDate, err := time.Parse("2006-01-02", endDateStr); err == nil {
			params.EndDate = &endDate
		}
	}

	result, err := h.saleService.ListSales(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Sales retrieved successfully", result)
}

// AppendItem handles appending a line item to an order
func (h *SaleHandler) AppendItem(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	var req request.AppendLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.BadRequest(c, "Invalid product ID")
		return
	}

	order, err := h.saleService.AppendLineItem(c.Request.Context(), orderID, service.SaleItemInput{
		ProductID: productID,
		Quantity:  req.Quantity,
		IsTreat:   req.IsTreat,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Line item added", order)
}

// EditItem handles editing a line item within the edit window
func (h *SaleHandler) EditItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "Invalid line item ID")
		return
	}

	var req request.EditLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.BadRequest(c, "Invalid product ID")
		return
	}

	order, err := h.saleService.EditLineItem(c.Request.Context(), itemID, service.EditLineItemInput{
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Line item updated", order)
}

// DeleteItem handles soft-deleting a line item
func (h *SaleHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "Invalid line item ID")
		return
	}

	order, err := h.saleService.DeleteLineItem(c.Request.Context(), itemID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Line item deleted", order)
}
