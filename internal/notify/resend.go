package notify

import (
	"context"
	"fmt"
	"formgate/internal/models"
	"formgate/internal/version"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// DefaultResendBaseURL is the root of the Resend API.
const DefaultResendBaseURL = "https://api.resend.com/"

// Resend sends notifications through the Resend API.
type Resend struct {
	apiKey string
	from   string
	client *resend.Client
}

// userAgent stamps outgoing API calls with the formgate version.
type userAgent struct {
	next http.RoundTripper
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())
	return u.next.RoundTrip(req)
}

// NewResend creates a Resend notifier. It is disabled when cfg.APIKey is
// empty. An unparsable cfg.ResendBaseURL falls back to the public API.
func NewResend(cfg models.NotifierConfig) *Resend {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: userAgent{next: http.DefaultTransport},
	}
	client := resend.NewCustomClient(httpClient, cfg.APIKey)

	if base, err := parseBaseURL(cfg.ResendBaseURL); err == nil {
		client.BaseURL = base
	}

	return &Resend{
		apiKey: cfg.APIKey,
		from:   cfg.FromAddress,
		client: client,
	}
}

// parseBaseURL resolves the API root. Request paths are resolved against it,
// so it always ends in a slash.
func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = DefaultResendBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return url.Parse(raw)
}

func (r *Resend) Enabled() bool {
	return r.apiKey != ""
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    formatFrom(msg.FromName, r.from),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return transportError("resend", fmt.Errorf("%w: %v", ctxErr, err))
	}
	return transportError("resend", err)
}
