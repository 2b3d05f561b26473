package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

var (
	ErrMissingCredentials      = errors.New("integration: missing credentials")
	ErrReauthorizationRequired = errors.New("integration: reauthorization required")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
)

// PlatformCode identifies a supported third-party platform. Codes are lower case.
type PlatformCode string

const (
	PlatformStripe     PlatformCode = "stripe"
	PlatformPayPal     PlatformCode = "paypal"
	PlatformQuickBooks PlatformCode = "quickbooks"
	PlatformAsana      PlatformCode = "asana"
)

// ParsePlatform normalizes a stored platform name. Matching is case-insensitive.
func ParsePlatform(name string) PlatformCode {
	return PlatformCode(strings.ToLower(strings.TrimSpace(name)))
}

// IsValid returns true if the platform code is supported
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformStripe, PlatformPayPal, PlatformQuickBooks, PlatformAsana:
		return true
	}
	return false
}

// DisplayName is the brand spelling used in marker tokens and emails
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformStripe:
		return "Stripe"
	case PlatformPayPal:
		return "PayPal"
	case PlatformQuickBooks:
		return "QuickBooks"
	case PlatformAsana:
		return "Asana"
	default:
		return string(c)
	}
}

// Marker builds the de-duplication token for a remote record
func (c PlatformCode) Marker(remoteID string) string {
	return c.DisplayName() + ":" + remoteID
}

// AlreadyImported reports whether any description carries marker as a whole
// token. "QuickBooks:1" does not match inside "QuickBooks:10".
func AlreadyImported(descriptions []string, marker string) bool {
	if marker == "" {
		return false
	}
	for _, d := range descriptions {
		if containsToken(d, marker) {
			return true
		}
	}
	return false
}

func containsToken(s, token string) bool {
	for offset := 0; ; {
		i := strings.Index(s[offset:], token)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(token)
		if (start == 0 || !isIDChar(s[start-1])) && (end == len(s) || !isIDChar(s[end])) {
			return true
		}
		offset = start + 1
	}
}

// isIDChar reports whether b can continue a remote record id
func isIDChar(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_' || b == '-'
}

// Credentials holds the decrypted secrets for one connection.
// Values must never be logged.
type Credentials map[string]string

// Integration is a tenant's connection to one platform. Credentials holds the
// encrypted envelope produced by the vault, never plaintext.
type Integration struct {
	shared.BaseEntity
	UserID      uuid.UUID
	Platform    string
	IsConnected bool
	Credentials string
	LastSynced  *time.Time
}

// NewIntegration creates a connected integration with an encrypted credential envelope
func NewIntegration(userID uuid.UUID, platform PlatformCode, envelope string) (*Integration, error) {
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unsupported integration platform")
	}
	return &Integration{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Platform:    string(platform),
		IsConnected: true,
		Credentials: envelope,
	}, nil
}

// Code returns the normalized platform code
func (i *Integration) Code() PlatformCode {
	return ParsePlatform(i.Platform)
}

// SyncResult reports one sync pass. It never carries credentials.
type SyncResult struct {
	Success  bool
	Imported int
	Skipped  int
}

// Syncer pulls one platform's records into the hub for a single integration
type Syncer interface {
	Platform() PlatformCode
	Sync(ctx context.Context, integ *Integration) (*SyncResult, error)
}

// Repository persists integrations
type Repository interface {
	ListIntegrations(ctx context.Context, userID uuid.UUID) ([]*Integration, error)
	GetIntegration(ctx context.Context, id uuid.UUID) (*Integration, error)
	CreateIntegration(ctx context.Context, integ *Integration) error
	UpdateIntegration(ctx context.Context, id uuid.UUID, update Update) error
}

// Update is a partial update. Nil fields are left unchanged.
type Update struct {
	IsConnected *bool
	Credentials *string
	LastSynced  *time.Time
}
