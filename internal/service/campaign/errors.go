package campaign

import "github.com/ignite/phishing-simulator/internal/domain"

// Sentinel errors for the campaign service layer. They alias the domain
// taxonomy so handlers can match either.
var (
	ErrNotFound     = domain.ErrNotFound
	ErrValidation   = domain.ErrValidation
	ErrNoRecipients = domain.Validationf("at least one recipient address is required")
	ErrNameRequired = domain.Validationf("campaign name is required")
)
