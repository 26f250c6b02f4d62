// Package submission runs one form submission through admission, parsing,
// validation and notification, and classifies the result as an Outcome.
//
// The package knows nothing about HTTP beyond the status code mapping; the api
// package extracts the client key, caps the body and writes the response.
package submission

import (
	"bytes"
	"fmt"
	"formgate/internal/ratelimit"
	"formgate/internal/validation"
	"strings"
	"text/template"
	"time"
)

// TimestampLayout formats the submitted-at line of notifications.
const TimestampLayout = "1/2/2006, 3:04:05 PM MST"

// Messages are the literal strings sent to clients for each outcome.
type Messages struct {
	Success     string
	RateLimited string
	Invalid     string
	Fault       string
}

// For returns the client message for kind.
func (m Messages) For(kind OutcomeKind) string {
	switch kind {
	case OK:
		return m.Success
	case RateLimited:
		return m.RateLimited
	case InvalidInput:
		return m.Invalid
	default:
		return m.Fault
	}
}

// Form describes one public endpoint.
type Form struct {
	Name     string
	Schema   validation.Schema
	Policy   ratelimit.Policy
	Sender   string // display name of the notification sender
	Subject  *template.Template
	Body     *template.Template
	Messages Messages
}

const rateLimitedMessage = "Too many requests. Please try again later."

// NewContactForm returns the contact form admitted under policy.
func NewContactForm(policy ratelimit.Policy) *Form {
	return &Form{
		Name:    validation.ContactSchema.Name,
		Schema:  validation.ContactSchema,
		Policy:  policy,
		Sender:  "Contact Form",
		Subject: contactSubject,
		Body:    contactBody,
		Messages: Messages{
			Success:     "Your message has been sent successfully. We'll get back to you within 24-48 hours.",
			RateLimited: rateLimitedMessage,
			Invalid:     "Invalid input. Please check your form and try again.",
			Fault:       "Failed to send message. Please try again.",
		},
	}
}

// NewSubscribeForm returns the newsletter form admitted under policy.
func NewSubscribeForm(policy ratelimit.Policy) *Form {
	return &Form{
		Name:    validation.SubscribeSchema.Name,
		Schema:  validation.SubscribeSchema,
		Policy:  policy,
		Sender:  "Newsletter",
		Subject: subscribeSubject,
		Body:    subscribeBody,
		Messages: Messages{
			Success:     "Subscribed successfully! You will receive our latest insights by email.",
			RateLimited: rateLimitedMessage,
			Invalid:     "Invalid email address. Please try again.",
			Fault:       "Failed to subscribe. Please try again.",
		},
	}
}

// templateData is what notification templates see. Record values are already
// HTML-escaped, which is why the templates use text/template.
type templateData struct {
	Record      validation.Record
	SubmittedAt string
}

var templateFuncs = template.FuncMap{
	"nl2br": func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\n", "<br/>")
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(text))
}

var (
	contactSubject = mustParse("contact_subject",
		`New Contact Form Submission from {{.Record.firstName}} {{.Record.lastName}}`)

	contactBody = mustParse("contact_body", `
<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Record.firstName}} {{.Record.lastName}}</p>
<p><strong>Email:</strong> {{.Record.email}}</p>
<p><strong>Phone:</strong> {{or .Record.phone "Not provided"}}</p>
<p><strong>Service Interest:</strong> {{or .Record.service "Not specified"}}</p>
<p><strong>Message:</strong></p>
<p>{{nl2br .Record.message}}</p>
<hr />
<p><small>Submitted at: {{.SubmittedAt}}</small></p>
`)

	subscribeSubject = mustParse("subscribe_subject", `New Newsletter Subscription`)

	subscribeBody = mustParse("subscribe_body", `
<h2>New Newsletter Subscription</h2>
<p><strong>Email:</strong> {{.Record.email}}</p>
<p><strong>Subscribed at:</strong> {{.SubmittedAt}}</p>
`)
)

// Render builds the notification subject and HTML body for record.
func (f *Form) Render(record validation.Record, submittedAt time.Time) (subject, html string, err error) {
	data := templateData{
		Record:      record,
		SubmittedAt: submittedAt.UTC().Format(TimestampLayout),
	}

	var buf bytes.Buffer
	if err := f.Subject.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s subject: %w", f.Name, err)
	}
	subject = buf.String()

	buf.Reset()
	if err := f.Body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", f.Name, err)
	}
	return subject, strings.TrimSpace(buf.String()), nil
}
