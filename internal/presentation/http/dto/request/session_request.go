package request

// CloseSessionRequest represents a request to close a register session
type CloseSessionRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}
