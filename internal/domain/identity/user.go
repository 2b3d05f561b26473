package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/opshub/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role distinguishes operators of the hub from the client businesses it serves
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

// NotificationCategory names an email category a tenant can opt out of
type NotificationCategory string

const (
	CategoryWeeklyReport       NotificationCategory = "weeklyReport"
	CategoryLowCashAlert       NotificationCategory = "lowCashAlert"
	CategoryOverdueInvoices    NotificationCategory = "overdueInvoices"
	CategoryIntegrationFailure NotificationCategory = "integrationFailure"
)

// AllCategories lists every notification category
func AllCategories() []NotificationCategory {
	return []NotificationCategory{
		CategoryWeeklyReport,
		CategoryLowCashAlert,
		CategoryOverdueInvoices,
		CategoryIntegrationFailure,
	}
}

// IsValid reports whether c is a known category
func (c NotificationCategory) IsValid() bool {
	switch c {
	case CategoryWeeklyReport, CategoryLowCashAlert, CategoryOverdueInvoices, CategoryIntegrationFailure:
		return true
	}
	return false
}

// EmailPreferences maps a category to whether the tenant wants it.
// A missing key means the category is enabled.
type EmailPreferences map[NotificationCategory]bool

// Enabled reports whether category c should be delivered
func (p EmailPreferences) Enabled(c NotificationCategory) bool {
	enabled, ok := p[c]
	return !ok || enabled
}

const bcryptCost = 12

// User is a tenant of the hub: a client business, or an admin operating the console
type User struct {
	shared.BaseEntity
	Email            string
	BusinessName     string
	Role             Role
	IsActive         bool
	EmailPreferences EmailPreferences
	PasswordHash     string
}

// NewClient creates an active client tenant
func NewClient(email, businessName string) (*User, error) {
	return newUser(email, businessName, RoleClient)
}

// NewAdmin creates an active admin account with the given password
func NewAdmin(email, password string) (*User, error) {
	u, err := newUser(email, "", RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

func newUser(email, businessName string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
		}
	}
	if len(businessName) > 200 {
		return nil, shared.NewDomainError("INVALID_BUSINESS_NAME", "Business name cannot exceed 200 characters")
	}

	return &User{
		BaseEntity:       shared.NewBaseEntity(),
		Email:            email,
		BusinessName:     strings.TrimSpace(businessName),
		Role:             role,
		IsActive:         true,
		EmailPreferences: EmailPreferences{},
	}, nil
}

// IsSweepable reports whether scheduled jobs should process this tenant
func (u *User) IsSweepable() bool {
	return u.Role == RoleClient && u.IsActive
}

// WantsEmail reports whether category c may be emailed to this tenant
func (u *User) WantsEmail(c NotificationCategory) bool {
	return u.IsActive && u.Email != "" && u.EmailPreferences.Enabled(c)
}

// DisplayName is the name used to greet the tenant in emails
func (u *User) DisplayName() string {
	if u.BusinessName != "" {
		return u.BusinessName
	}
	return u.Email
}

// Deactivate soft-deletes the tenant
func (u *User) Deactivate() {
	u.IsActive = false
	u.Touch(time.Now())
}

// SetPassword stores a bcrypt hash of password
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword reports whether password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
