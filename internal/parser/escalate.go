package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flipmail/internal/email"
)

// EscalationResult holds the fields an external extractor recovered
// from an email the rule bank could not parse confidently
type EscalationResult struct {
	TrackingNumber string  `json:"tracking_number"`
	Carrier        string  `json:"carrier"`
	WithdrawalCode string  `json:"withdrawal_code"`
	PickupAddress  string  `json:"pickup_address"`
	PickupDeadline string  `json:"pickup_deadline"`
	Confidence     float64 `json:"confidence"`
}

// Escalator defines the interface for external extraction of queued
// emails
type Escalator interface {
	// Escalate asks the external extractor to parse a queued email
	Escalate(ctx context.Context, rec *email.UnparsedEmail) (EscalationResult, error)

	// HealthCheck verifies the extractor service is available
	HealthCheck(ctx context.Context) error

	// IsEnabled returns whether escalation is enabled
	IsEnabled() bool
}

// NoOpEscalator is a no-operation implementation used when no
// external extractor is configured
type NoOpEscalator struct{}

// NewNoOpEscalator creates a no-op escalator
func NewNoOpEscalator() Escalator {
	return &NoOpEscalator{}
}

// Escalate returns an empty result
func (n *NoOpEscalator) Escalate(ctx context.Context, rec *email.UnparsedEmail) (EscalationResult, error) {
	return EscalationResult{}, nil
}

// HealthCheck always returns nil
func (n *NoOpEscalator) HealthCheck(ctx context.Context) error {
	return nil
}

// IsEnabled returns false
func (n *NoOpEscalator) IsEnabled() bool {
	return false
}

// EscalatorConfig holds configuration for LLM-backed escalation
type EscalatorConfig struct {
	Endpoint     string        `json:"endpoint"`
	Model        string        `json:"model"`
	APIKey       string        `json:"api_key"`
	Temperature  float64       `json:"temperature"`
	MaxBodyChars int           `json:"max_body_chars"`
	Timeout      time.Duration `json:"timeout"`
	Enabled      bool          `json:"enabled"`
}

// DefaultEscalatorConfig returns a default configuration
func DefaultEscalatorConfig() *EscalatorConfig {
	return &EscalatorConfig{
		Model:        "deepseek-chat",
		Temperature:  0.1,
		MaxBodyChars: 4000,
		Timeout:      120 * time.Second,
		Enabled:      false,
	}
}

// LLMEscalator calls an Ollama-compatible generation endpoint and
// expects a JSON object with the recovered fields in the response
type LLMEscalator struct {
	config     *EscalatorConfig
	httpClient *http.Client
}

// NewLLMEscalator creates an LLM-backed escalator
func NewLLMEscalator(config *EscalatorConfig) *LLMEscalator {
	return &LLMEscalator{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewEscalator creates an escalator from configuration, falling back
// to the no-op implementation when escalation is disabled
func NewEscalator(config *EscalatorConfig) Escalator {
	if !config.Enabled || config.Endpoint == "" {
		return NewNoOpEscalator()
	}
	return NewLLMEscalator(config)
}

// Escalate asks the model to parse a queued email
func (l *LLMEscalator) Escalate(ctx context.Context, rec *email.UnparsedEmail) (EscalationResult, error) {
	prompt := l.buildPrompt(rec)

	response, err := l.callGenerate(ctx, prompt)
	if err != nil {
		return EscalationResult{}, fmt.Errorf("escalation call failed: %w", err)
	}

	result, err := l.parseResponse(response)
	if err != nil {
		return EscalationResult{}, fmt.Errorf("failed to parse escalation response: %w", err)
	}

	return result, nil
}

// buildPrompt creates the extraction prompt for one queued email
func (l *LLMEscalator) buildPrompt(rec *email.UnparsedEmail) string {
	return fmt.Sprintf(`Extract shipment information from this French marketplace email. Return ONLY a JSON object.

Subject: %s
Sender: %s
Body: %s

Fields to extract (use "" when absent, never invent values):
- tracking_number: the carrier tracking number
- carrier: one of colissimo, chronopost, mondial_relay, relais_colis, vinted_go, la_poste, dhl, ups
- withdrawal_code: the pickup withdrawal code (digits)
- pickup_address: the pickup point street address
- pickup_deadline: the pickup deadline as DD/MM/YYYY
- confidence: 0.0-1.0 for the extraction overall

Return JSON format:
{"tracking_number": "", "carrier": "", "withdrawal_code": "", "pickup_address": "", "pickup_deadline": "", "confidence": 0.0}`,
		rec.Subject, rec.Sender, l.clipBody(rec.Body))
}

// clipBody limits body size sent to the model by keeping the first and
// last halves of the budget and dropping the middle.
func (l *LLMEscalator) clipBody(body string) string {
	max := l.config.MaxBodyChars
	if max <= 0 || len(body) <= max {
		return body
	}
	half := max / 2
	return body[:half] + "\n...\n" + body[len(body)-half:]
}

// callGenerate makes the API call to the generation endpoint
func (l *LLMEscalator) callGenerate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model":       l.config.Model,
		"prompt":      prompt,
		"stream":      false,
		"temperature": l.config.Temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.config.Endpoint+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if l.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.config.APIKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var generated struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return generated.Response, nil
}

// parseResponse parses the model output, tolerating markdown fences
func (l *LLMEscalator) parseResponse(response string) (EscalationResult, error) {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	var result EscalationResult
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return EscalationResult{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	result.TrackingNumber = strings.TrimSpace(result.TrackingNumber)
	result.Carrier = strings.TrimSpace(strings.ToLower(result.Carrier))
	result.WithdrawalCode = strings.TrimSpace(result.WithdrawalCode)
	result.PickupAddress = strings.TrimSpace(result.PickupAddress)
	result.PickupDeadline = strings.TrimSpace(result.PickupDeadline)

	return result, nil
}

// HealthCheck verifies the endpoint responds
func (l *LLMEscalator) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", l.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("escalation endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("escalation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// IsEnabled returns whether escalation is enabled
func (l *LLMEscalator) IsEnabled() bool {
	return l.config.Enabled
}
