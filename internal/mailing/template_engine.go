// Package mailing renders lure messages and hands them to a mail transport.
// Templates use the Liquid language.
package mailing

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

// Rendered is the output of rendering a lure for one recipient.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer compiles the lure and landing templates once and renders them
// per recipient. Compiled templates are immutable, so Renderer is safe for
// concurrent use.
type Renderer struct {
	engine  *liquid.Engine
	subject *liquid.Template
	html    *liquid.Template
	landing *liquid.Template
}

// NewRenderer parses the templates, failing on any syntax error so a bad
// template is caught at startup rather than on the first send.
func NewRenderer(t Templates) (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	r := &Renderer{engine: engine}
	var err error
	if r.subject, err = parse(engine, "subject", t.Subject); err != nil {
		return nil, err
	}
	if r.html, err = parse(engine, "html", t.HTML); err != nil {
		return nil, err
	}
	if r.landing, err = parse(engine, "landing", t.Landing); err != nil {
		return nil, err
	}
	return r, nil
}

func parse(engine *liquid.Engine, name, src string) (*liquid.Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%s template is empty", name)
	}
	tpl, err := engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return tpl, nil
}

// registerFilters adds the filters lure authors reach for.
func registerFilters(engine *liquid.Engine) {
	// Greeting name from the address: {{ recipient | local_part }}
	engine.RegisterFilter("local_part", func(email string) string {
		if i := strings.IndexByte(email, '@'); i > 0 {
			return email[:i]
		}
		return email
	})

	// Mask an address for display: {{ recipient | mask_email }}
	engine.RegisterFilter("mask_email", logger.RedactEmail)
}

// RenderLure renders the subject and HTML body for msg.
func (r *Renderer) RenderLure(msg domain.LureMessage) (*Rendered, error) {
	bindings := liquid.Bindings{
		"recipient":     msg.To,
		"campaign_name": msg.CampaignName,
		"pixel_url":     msg.Links.PixelURL,
		"landing_url":   msg.Links.LandingURL,
		"download_url":  msg.Links.DownloadURL,
	}

	subject, err := r.subject.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	bindings["subject"] = subject

	html, err := r.html.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	return &Rendered{Subject: strings.TrimSpace(subject), HTML: html}, nil
}

// RenderLanding renders the landing page whose form posts to loginURL.
func (r *Renderer) RenderLanding(token domain.Token, loginURL string) (string, error) {
	out, err := r.landing.RenderString(liquid.Bindings{
		"token":     string(token),
		"login_url": loginURL,
	})
	if err != nil {
		logger.Error("landing render failed", "error", err)
		return "", fmt.Errorf("render landing: %w", err)
	}
	return out, nil
}
