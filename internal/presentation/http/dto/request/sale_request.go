package request

// SaleItemRequest represents one line of a sale request
type SaleItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	IsTreat   bool   `json:"is_treat"`
}

// CreateSaleRequest represents a create sale request
type CreateSaleRequest struct {
	Items             []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	CardDiscountCount int               `json:"card_discount_count" binding:"gte=0"`
	PaymentMethod     string            `json:"payment_method" binding:"omitempty,oneof=cash card"`
}

// AppendLineItemRequest represents a request to add a line to an order
type AppendLineItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	IsTreat   bool   `json:"is_treat"`
}

// EditLineItemRequest represents a request to change a line's product or quantity
type EditLineItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}
