package request

// CreateProductRequest represents a create product request
type CreateProductRequest struct {
	CategoryID     *string `json:"category_id" binding:"omitempty,uuid"`
	Name           string  `json:"name" binding:"required,min=1,max=255"`
	Price          string  `json:"price" binding:"required"`
	Stock          int     `json:"stock" binding:"gte=0"`
	UnlimitedStock bool    `json:"unlimited_stock"`
}

// UpdateProductRequest represents an update product request. Omitted fields
// are left unchanged.
type UpdateProductRequest struct {
	CategoryID     *string `json:"category_id" binding:"omitempty,uuid"`
	Name           *string `json:"name" binding:"omitempty,min=1,max=255"`
	Price          *string `json:"price"`
	Stock          *int    `json:"stock" binding:"omitempty,gte=0"`
	UnlimitedStock *bool   `json:"unlimited_stock"`
}

// CreateCategoryRequest represents a create category request
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}
