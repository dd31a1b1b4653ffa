// Package token issues the per-dispatch tracking tokens.
//
// A token is a random (version 4) UUID rendered as 32 lowercase hex
// characters. It carries 122 bits from crypto/rand and nothing derived from
// the recipient or the clock, so it cannot be guessed from either.
package token

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/phishing-simulator/internal/domain"
)

var shape = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Generator issues tokens. The zero value is not usable; call NewGenerator.
type Generator struct {
	newRandom func() (uuid.UUID, error)
}

// NewGenerator verifies that the entropy source works. An error here is a
// startup failure: Issue itself never fails.
func NewGenerator() (*Generator, error) {
	g := &Generator{newRandom: uuid.NewRandom}
	if _, err := g.newRandom(); err != nil {
		return nil, fmt.Errorf("entropy source unavailable: %w", err)
	}
	return g, nil
}

// Issue returns a fresh token. Safe for concurrent use.
func (g *Generator) Issue() domain.Token {
	id, err := g.newRandom()
	if err != nil {
		// crypto/rand failing after a successful probe means the process
		// can no longer produce unguessable tokens at all.
		panic(fmt.Sprintf("token: entropy source failed: %v", err))
	}
	return domain.Token(strings.ReplaceAll(id.String(), "-", ""))
}

// Valid reports whether s has the shape of an issued token. Tracking
// endpoints use it to skip store lookups for junk ids.
func Valid(s string) bool {
	return shape.MatchString(s)
}
