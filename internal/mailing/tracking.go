package mailing

import (
	"net/url"
	"strings"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// Callback paths served by the tracking endpoints. The pixel path keeps its
// historical spelling so links in already-sent lures still resolve.
const (
	PixelPath    = "/phisingpixel"
	LandingPath  = "/landing"
	DownloadPath = "/download"
	LoginPath    = "/login"

	// TokenParam is the query parameter carrying the token.
	TokenParam = "id"
)

// LinkBuilder derives callback URLs from a public base URL.
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder creates a link builder. baseURL is the externally
// reachable origin of the tracking server, e.g. https://track.example.com.
func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Links returns the pixel, landing, and download URLs for token.
func (b *LinkBuilder) Links(token domain.Token) domain.LureLinks {
	return domain.LureLinks{
		PixelURL:    b.URL(PixelPath, token),
		LandingURL:  b.URL(LandingPath, token),
		DownloadURL: b.URL(DownloadPath, token),
	}
}

// URL builds base+path?id=token. Relative base URLs are allowed so the
// landing page can post back to the same origin.
func (b *LinkBuilder) URL(path string, token domain.Token) string {
	q := url.Values{TokenParam: []string{string(token)}}
	return b.baseURL + path + "?" + q.Encode()
}
