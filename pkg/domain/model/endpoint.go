package model

import (
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// AccessToken is the bearer token for the DICOMweb endpoint. Loggers redact
// values of this type.
type AccessToken string

// Endpoint identifies a DICOMweb service. It is immutable once created.
type Endpoint struct {
	baseURL string
	token   AccessToken
}

// NewEndpoint validates and creates an Endpoint
func NewEndpoint(baseURL string, token AccessToken) (Endpoint, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return Endpoint{}, goerr.New("base URL is required", goerr.T(ErrTagInvalidParameter))
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return Endpoint{}, goerr.New("base URL must be http or https",
			goerr.T(ErrTagInvalidParameter),
			goerr.V("url", baseURL),
		)
	}
	if token == "" {
		return Endpoint{}, goerr.New("access token is required", goerr.T(ErrTagInvalidParameter))
	}

	return Endpoint{baseURL: baseURL, token: token}, nil
}

// BaseURL returns the service root without trailing slash
func (e Endpoint) BaseURL() string { return e.baseURL }

// Token returns the bearer token
func (e Endpoint) Token() AccessToken { return e.token }

// LogValue implements slog.LogValuer. The token is never part of the value.
func (e Endpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", e.baseURL),
		slog.Bool("token_set", e.token != ""),
	)
}
