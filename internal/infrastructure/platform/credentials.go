package platform

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/opshub/backend/internal/domain/integration"
)

// CredentialVault decrypts and re-encrypts stored credential envelopes
type CredentialVault interface {
	EncryptCredentials(creds integration.Credentials) (string, error)
	DecryptCredentials(envelope string) integration.Credentials
}

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// stripeCredentials is a restricted or secret API key
type stripeCredentials struct {
	APIKey string `json:"apiKey" validate:"required"`
}

// payPalCredentials is a REST app client id and secret
type payPalCredentials struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
}

// quickBooksCredentials is an OAuth refresh token for one company (realm)
type quickBooksCredentials struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	RealmID      string `json:"realmId" validate:"required"`
}

// asanaCredentials is a personal access token, optionally pinned to a workspace
type asanaCredentials struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	WorkspaceGID string `json:"workspaceGid"`
}

// loadCredentials decrypts integ's envelope into dst and validates required fields.
// Missing or undecryptable credentials fail the call with ErrMissingCredentials.
func loadCredentials(v CredentialVault, integ *integration.Integration, dst any) error {
	if strings.TrimSpace(integ.Credentials) == "" {
		return fmt.Errorf("%w: no credentials stored", integration.ErrMissingCredentials)
	}

	creds := v.DecryptCredentials(integ.Credentials)
	if len(creds) == 0 {
		return fmt.Errorf("%w: credentials could not be read", integration.ErrMissingCredentials)
	}

	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMissingCredentials, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMissingCredentials, err)
	}

	if err := validate.Struct(dst); err != nil {
		var missing []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
		}
		return fmt.Errorf("%w: missing %s", integration.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
