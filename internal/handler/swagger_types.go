package handler

import (
	"recontab/internal/domain"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// LoginRequest represents the login request body.
type LoginRequest struct {
	TenantSlug string `json:"tenant_slug" binding:"required" example:"gabinete-silva"`
	Email      string `json:"email" binding:"required" example:"ana@gabinete-silva.pt"`
	Password   string `json:"password" binding:"required" example:"securepassword123"`
}

// RefreshRequest represents the token refresh request body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// CreateClientRequest represents the create client request body.
type CreateClientRequest struct {
	NIF   string `json:"nif" binding:"required" example:"501964843"`
	Name  string `json:"name" binding:"required" example:"Padaria Central, Lda."`
	Email string `json:"email" example:"geral@padariacentral.pt"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

// ImportFailureBody is returned when the reference file cannot be imported.
// Data is the failed run that was recorded.
type ImportFailureBody struct {
	Success bool                      `json:"success" example:"false"`
	Data    *domain.ReconciliationRun `json:"data"`
	Error   *APIError                 `json:"error"`
}
