package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailClient implements Client for the Gmail API
type GmailClient struct {
	service *gmail.Service
	userID  string
	config  *GmailConfig
	ctx     context.Context
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	UserEmail    string

	// Request limits
	MaxResults     int64
	RequestTimeout time.Duration
	RateLimitDelay time.Duration
}

// NewGmailClient creates a new Gmail API client
func NewGmailClient(config *GmailConfig) (*GmailClient, error) {
	ctx := context.Background()

	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
	}

	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	userID := "me"
	if config.UserEmail != "" {
		userID = config.UserEmail
	}

	client := &GmailClient{
		service: service,
		userID:  userID,
		config:  config,
		ctx:     ctx,
	}

	if err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("Gmail client health check failed: %w", err)
	}

	return client, nil
}

// Search performs a Gmail search query
func (g *GmailClient) Search(query string) ([]RawEmail, error) {
	slog.Debug("Searching Gmail", "query", query)

	// Apply rate limiting
	time.Sleep(g.config.RateLimitDelay)

	req := g.service.Users.Messages.List(g.userID).Q(query)
	if g.config.MaxResults > 0 {
		req = req.MaxResults(g.config.MaxResults)
	}

	resp, err := req.Do()
	if err != nil {
		return nil, fmt.Errorf("Gmail search failed: %w", err)
	}

	slog.Debug("Gmail search complete", "messages", len(resp.Messages))

	var messages []RawEmail
	for _, msg := range resp.Messages {
		// Rate limiting between requests
		time.Sleep(g.config.RateLimitDelay)

		fullMessage, err := g.GetMessage(msg.Id)
		if err != nil {
			slog.Warn("Failed to get message", "id", msg.Id, "error", err)
			continue
		}

		messages = append(messages, *fullMessage)
	}

	return messages, nil
}

// GetMessage retrieves the full content of a specific message
func (g *GmailClient) GetMessage(id string) (*RawEmail, error) {
	msg, err := g.service.Users.Messages.Get(g.userID, id).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	raw, err := g.parseGmailMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", id, err)
	}

	return raw, nil
}

// parseGmailMessage converts a Gmail API message to a RawEmail
func (g *GmailClient) parseGmailMessage(msg *gmail.Message) (*RawEmail, error) {
	raw := &RawEmail{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		Provider:  ProviderGmail,
		Headers:   make(map[string]string),
		Labels:    msg.LabelIds,
	}

	for _, header := range msg.Payload.Headers {
		raw.Headers[header.Name] = header.Value

		switch strings.ToLower(header.Name) {
		case "from":
			raw.From = header.Value
		case "subject":
			raw.Subject = header.Value
		case "date":
			if date, err := mail.ParseDate(header.Value); err == nil {
				raw.Date = date
			}
		}
	}

	plainText, htmlText := g.extractContent(msg.Payload)
	raw.PlainText = plainText
	raw.HTMLText = htmlText

	return raw, nil
}

// extractContent extracts plain text and HTML content from message payload
func (g *GmailClient) extractContent(payload *gmail.MessagePart) (plainText, htmlText string) {
	if payload.MimeType == "text/plain" && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			plainText = string(decoded)
		}
	} else if payload.MimeType == "text/html" && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			htmlText = string(decoded)
		}
	}

	// Recursively process parts for multipart messages
	for _, part := range payload.Parts {
		partPlain, partHTML := g.extractContent(part)
		if partPlain != "" && plainText == "" {
			plainText = partPlain
		}
		if partHTML != "" && htmlText == "" {
			htmlText = partHTML
		}
	}

	return plainText, htmlText
}

// HealthCheck verifies the Gmail connection is working
func (g *GmailClient) HealthCheck() error {
	profile, err := g.service.Users.GetProfile(g.userID).Do()
	if err != nil {
		return fmt.Errorf("failed to get Gmail profile: %w", err)
	}

	slog.Info("Connected to Gmail account", "email", profile.EmailAddress)
	return nil
}

// Close cleans up resources
func (g *GmailClient) Close() error {
	// Gmail API client doesn't require explicit cleanup
	return nil
}

// BuildSearchQuery constructs a Gmail search query for shipment
// notification emails from the marketplaces and carriers we parse.
func BuildSearchQuery(senders []string, afterDays int, unreadOnly bool, customQuery string) string {
	if customQuery != "" {
		return customQuery
	}

	var parts []string

	if len(senders) == 0 {
		senders = []string{
			"vinted.fr", "vinted.com", "leboncoin.fr",
			"laposte.fr", "colissimo.fr", "chronopost.fr",
			"mondialrelay.fr", "relaiscolis.com", "dhl.com",
		}
	}
	parts = append(parts, fmt.Sprintf("from:(%s)", strings.Join(senders, " OR ")))

	if afterDays > 0 {
		afterDate := time.Now().AddDate(0, 0, -afterDays).Format("2006/1/2")
		parts = append(parts, fmt.Sprintf("after:%s", afterDate))
	}

	if unreadOnly {
		parts = append(parts, "is:unread")
	}

	return strings.Join(parts, " ")
}

// SearchWithDefaults performs a search with the default sender filters
func (g *GmailClient) SearchWithDefaults(afterDays int, unreadOnly bool) ([]RawEmail, error) {
	query := BuildSearchQuery(nil, afterDays, unreadOnly, "")
	return g.Search(query)
}
