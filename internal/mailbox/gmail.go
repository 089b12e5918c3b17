// Package mailbox supplies candidate job-related messages from Gmail.
//
// The OAuth client credentials live in a credentials.json downloaded from the
// Google Cloud Console; the user token is expected at the configured token
// path (provision it with any standard installed-app flow). The service runs
// headless, so a missing token is a setup error, not a prompt.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message is one fetched email, reduced to what classification needs.
// Date falls back to the fetch time when the header is missing or malformed.
type Message struct {
	ID      string
	Subject string
	Date    time.Time
	Body    string
}

type GmailFetcher struct {
	service *gmail.Service
}

// NewGmail builds an authenticated Gmail client from the credentials and
// token files. Token refresh is handled by the oauth2 transport.
func NewGmail(ctx context.Context, credsPath, tokenPath string) (*GmailFetcher, error) {
	b, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read gmail token (run the oauth flow first): %w", err)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	return &GmailFetcher{service: srv}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// buildQuery is the fixed search template: a date floor plus subject keywords
// or typical recruiting sender names.
func buildQuery(after time.Time) string {
	return fmt.Sprintf(
		`after:%s (subject:(application OR position OR interview OR assessment OR "thank you for applying") `+
			`OR from:(noreply OR careers OR recruiting OR talent OR jobs))`,
		after.Format("2006/01/02"),
	)
}

// Search returns up to maxResults candidate message ids from the lookback
// window [now - daysBack, now].
func (g *GmailFetcher) Search(ctx context.Context, daysBack, maxResults int) ([]string, error) {
	after := time.Now().AddDate(0, 0, -daysBack)
	res, err := g.service.Users.Messages.List("me").
		Q(buildQuery(after)).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// Fetch retrieves one message's subject, date and plain-text body.
func (g *GmailFetcher) Fetch(ctx context.Context, id string) (Message, error) {
	msg, err := g.service.Users.Messages.Get("me", id).Context(ctx).Do()
	if err != nil {
		return Message{}, fmt.Errorf("get message %s: %w", id, err)
	}

	out := Message{ID: id, Date: time.Now().UTC()}
	if msg.Payload != nil {
		out.Subject = headerValue(msg.Payload.Headers, "Subject")
		if raw := headerValue(msg.Payload.Headers, "Date"); raw != "" {
			if parsed, err := mail.ParseDate(raw); err == nil {
				out.Date = parsed
			}
		}
		out.Body = extractBody(msg.Payload)
	}
	return out, nil
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// extractBody prefers a text/plain part and falls back to the top-level body
// when the message has no parts.
func extractBody(payload *gmail.MessagePart) string {
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if data, ok := decodeBody(part.Body.Data); ok {
				return data
			}
		}
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, ok := decodeBody(payload.Body.Data); ok {
			return data
		}
	}
	return ""
}

// decodeBody handles both padded and unpadded base64url, which the Gmail API
// mixes freely.
func decodeBody(data string) (string, bool) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	return "", false
}

// Status reports whether the mailbox capability is ready without touching the
// network.
type Status struct {
	CredentialsFound bool `json:"credentialsFound"`
	TokenFound       bool `json:"tokenFound"`
	Ready            bool `json:"ready"`
}

func CheckSetup(credsPath, tokenPath string) Status {
	st := Status{
		CredentialsFound: fileExists(credsPath),
		TokenFound:       fileExists(tokenPath),
	}
	st.Ready = st.CredentialsFound && st.TokenFound
	return st
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
