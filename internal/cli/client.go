package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flipmail/internal/database"
	"flipmail/internal/email"
	"flipmail/internal/triage"
)

// Client represents an HTTP client for the flipmail API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error from the API
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// IngestRequest mirrors the server ingest payload
type IngestRequest struct {
	UserID     string    `json:"user_id"`
	MessageID  string    `json:"message_id"`
	Provider   string    `json:"provider"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	PlainBody  string    `json:"plain_body"`
	HTMLBody   string    `json:"html_body"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels"`
}

// QueueList is the server response for the unparsed email queue
type QueueList struct {
	Count  int                   `json:"count"`
	Emails []email.UnparsedEmail `json:"emails"`
}

// ShipmentList is the server response for accepted shipments
type ShipmentList struct {
	Count     int                 `json:"count"`
	Shipments []database.Shipment `json:"shipments"`
}

// doRequest performs an HTTP request and handles errors
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = resp.Status
		}
		return nil, &APIError{Code: resp.StatusCode, Message: text}
	}

	return resp, nil
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// Ingest submits an email for triage
func (c *Client) Ingest(req *IngestRequest) (*triage.Decision, error) {
	resp, err := c.doRequest("POST", "/api/emails/ingest", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decision triage.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &decision, nil
}

// GetQueue returns unparsed emails for a user, optionally filtered by status
func (c *Client) GetQueue(userID, status string, limit int) (*QueueList, error) {
	path := "/api/unparsed?user_id=" + userID
	if status != "" {
		path += "&status=" + status
	}
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list QueueList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &list, nil
}

// GetQueuedEmail returns a single unparsed email by ID
func (c *Client) GetQueuedEmail(id int64) (*email.UnparsedEmail, error) {
	resp, err := c.doRequest("GET", "/api/unparsed/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rec email.UnparsedEmail
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &rec, nil
}

// RequeueEmail puts a failed unparsed email back in the pending queue
func (c *Client) RequeueEmail(id int64, force bool) error {
	path := "/api/unparsed/" + strconv.FormatInt(id, 10) + "/requeue"
	if force {
		path += "?force=true"
	}
	resp, err := c.doRequest("POST", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// DeleteQueuedEmail removes an unparsed email from the queue
func (c *Client) DeleteQueuedEmail(id int64) error {
	resp, err := c.doRequest("DELETE", "/api/unparsed/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// GetShipments returns accepted shipments for a user
func (c *Client) GetShipments(userID string, limit int) (*ShipmentList, error) {
	path := "/api/shipments?user_id=" + userID
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list ShipmentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &list, nil
}

// FetchSummary reports the outcome of a server-side mailbox fetch
type FetchSummary struct {
	Fetched    int `json:"fetched"`
	Accepted   int `json:"accepted"`
	Queued     int `json:"queued"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// FetchMailbox triggers a one-shot mailbox fetch on the server
func (c *Client) FetchMailbox() (*FetchSummary, error) {
	resp, err := c.doRequest("POST", "/api/admin/mailbox/fetch", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var summary FetchSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &summary, nil
}

// GetMetrics returns worker metrics
func (c *Client) GetMetrics() (map[string]interface{}, error) {
	resp, err := c.doRequest("GET", "/api/admin/metrics", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var metrics map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return metrics, nil
}
