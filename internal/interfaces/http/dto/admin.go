package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
)

// LoginRequest holds console credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after a successful login. The token is also set as a cookie.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      ClientResponse `json:"user"`
}

// CreateClientRequest creates a client tenant
type CreateClientRequest struct {
	Email        string `json:"email" binding:"required,email"`
	BusinessName string `json:"business_name" binding:"required,max=200"`
}

// UpdatePreferencesRequest sets per-category email preferences. Categories
// left out keep their current value.
type UpdatePreferencesRequest struct {
	Preferences map[string]bool `json:"preferences" binding:"required"`
}

// ConnectIntegrationRequest connects a platform with plaintext credentials,
// which are encrypted before storage
type ConnectIntegrationRequest struct {
	Platform    string            `json:"platform" binding:"required,oneof=stripe paypal quickbooks asana"`
	Credentials map[string]string `json:"credentials" binding:"required,min=1"`
}

// ClientResponse is the console view of a tenant
type ClientResponse struct {
	ID               uuid.UUID       `json:"id"`
	Email            string          `json:"email"`
	BusinessName     string          `json:"business_name"`
	Role             string          `json:"role"`
	IsActive         bool            `json:"is_active"`
	EmailPreferences map[string]bool `json:"email_preferences"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToClientResponse converts a user. Every category is listed with its effective value.
func ToClientResponse(u *identity.User) ClientResponse {
	prefs := make(map[string]bool, len(identity.AllCategories()))
	for _, c := range identity.AllCategories() {
		prefs[string(c)] = u.EmailPreferences.Enabled(c)
	}
	return ClientResponse{
		ID:               u.ID,
		Email:            u.Email,
		BusinessName:     u.BusinessName,
		Role:             string(u.Role),
		IsActive:         u.IsActive,
		EmailPreferences: prefs,
		CreatedAt:        u.CreatedAt,
	}
}

// IntegrationResponse never includes credentials
type IntegrationResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Platform    string     `json:"platform"`
	IsConnected bool       `json:"is_connected"`
	LastSynced  *time.Time `json:"last_synced,omitempty"`
}

// ToIntegrationResponse converts an integration
func ToIntegrationResponse(i *integration.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:          i.ID,
		UserID:      i.UserID,
		Platform:    i.Platform,
		IsConnected: i.IsConnected,
		LastSynced:  i.LastSynced,
	}
}

// SyncResponse reports a manual sync
type SyncResponse struct {
	Success  bool `json:"success"`
	Imported int  `json:"imported"`
	Skipped  int  `json:"skipped"`
}
