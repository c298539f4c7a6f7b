// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PasswordResetEmailData holds data for the password reset email.
type PasswordResetEmailData struct {
	SiteName  string
	ResetLink string
	ExpiresIn string // e.g., "1 hour"
}

// BuildPasswordResetEmail creates a reset email with both HTML and text bodies.
func BuildPasswordResetEmail(to string, data PasswordResetEmailData) Email {
	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("You asked to reset your %s password.\n\n", data.SiteName))
	text.WriteString("Open this link to choose a new one:\n")
	text.WriteString(data.ResetLink + "\n\n")
	text.WriteString(fmt.Sprintf("The link expires in %s.\n\n", data.ExpiresIn))
	text.WriteString("If you did not request this, you can safely ignore this email.\n")

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(resetTmpl, data),
	}
}

// ContactEmailData holds a submitted contact form. SenderEmail is empty
// for anonymous visitors.
type ContactEmailData struct {
	SiteName    string
	SenderEmail string
	Message     string
}

// contactPolicy strips all markup from visitor-supplied text.
var contactPolicy = bluemonday.StrictPolicy()

// Sender describes who sent a contact message.
func (d ContactEmailData) Sender() string {
	if d.SenderEmail == "" {
		return "An anonymous user"
	}
	return "User " + d.SenderEmail
}

// BuildContactEmail forwards a contact form submission to the site owner.
// Signed-in senders become the Reply-To. Markup in the message is stripped
// before it reaches either body.
func BuildContactEmail(to string, data ContactEmailData) Email {
	clean := data
	clean.Message = strings.TrimSpace(contactPolicy.Sanitize(data.Message))

	return Email{
		To:       to,
		ReplyTo:  data.SenderEmail,
		Subject:  fmt.Sprintf("%s Contact Form Message from %s", data.SiteName, data.Sender()),
		TextBody: fmt.Sprintf("Sender: %s\n\nMessage:\n%s\n", data.Sender(), clean.Message),
		HTMLBody: render(contactTmpl, clean),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

var (
	resetTmpl   = template.Must(template.New("reset").Parse(layoutStart + resetBody + layoutEnd))
	contactTmpl = template.Must(template.New("contact").Parse(layoutStart + contactBody + layoutEnd))
)

const layoutStart = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #fdf6ec;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #f1e4d0;">
              <h1 style="margin: 0; font-size: 22px; color: #e07a1f;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 28px 32px; font-size: 15px; color: #374151; line-height: 1.5;">
`

const layoutEnd = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const resetBody = `
              <p style="margin: 0 0 20px;">You asked to reset your password. Use the button below to choose a new one.</p>
              <p style="text-align: center; margin: 0 0 20px;">
                <a href="{{.ResetLink}}" style="display: inline-block; padding: 12px 28px; background-color: #e07a1f; color: #ffffff; text-decoration: none; border-radius: 6px;">Reset password</a>
              </p>
              <p style="margin: 0; font-size: 13px; color: #6b7280;">This link expires in {{.ExpiresIn}}. If you did not request it, ignore this email.</p>`

const contactBody = `
              <p style="margin: 0 0 12px;"><strong>Sender:</strong> {{.Sender}}</p>
              <p style="margin: 0 0 6px;"><strong>Message:</strong></p>
              <pre style="margin: 0; white-space: pre-wrap; font-family: inherit;">{{.Message}}</pre>`
