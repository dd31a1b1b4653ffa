package mailing

import (
	"testing"

	"github.com/ignite/phishing-simulator/internal/domain"
)

func TestLinkBuilderLinks(t *testing.T) {
	tests := []struct {
		name string
		base string
		want domain.LureLinks
	}{
		{
			name: "absolute base",
			base: "https://track.example.com",
			want: domain.LureLinks{
				PixelURL:    "https://track.example.com/phisingpixel?id=abc123",
				LandingURL:  "https://track.example.com/landing?id=abc123",
				DownloadURL: "https://track.example.com/download?id=abc123",
			},
		},
		{
			name: "trailing slash trimmed",
			base: "http://localhost:8080/",
			want: domain.LureLinks{
				PixelURL:    "http://localhost:8080/phisingpixel?id=abc123",
				LandingURL:  "http://localhost:8080/landing?id=abc123",
				DownloadURL: "http://localhost:8080/download?id=abc123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLinkBuilder(tt.base).Links("abc123")
			if got != tt.want {
				t.Errorf("Links() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLinkBuilderURLRelative(t *testing.T) {
	got := NewLinkBuilder("").URL(LoginPath, "deadbeef")
	if got != "/login?id=deadbeef" {
		t.Errorf("URL() = %q", got)
	}
}
