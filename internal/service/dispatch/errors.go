package dispatch

import "github.com/ignite/phishing-simulator/internal/domain"

// Sentinel errors for the dispatch service layer.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrEmailRequired = domain.Validationf("recipient email is required")
)
