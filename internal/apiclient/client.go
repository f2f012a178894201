// internal/apiclient/client.go
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/javajoker/tink-backend/internal/config"
)

// Error codes the board API answers with.
const (
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeActionUnavailable    = "ACTION_UNAVAILABLE"
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
)

var ErrNotFound = errors.New("resource not found")

// APIError is a non-success envelope returned by the server. Details holds
// the decoded "details" value; validation failures also fill Fields.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    interface{}
	Fields     []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %d %s: %s", e.StatusCode, e.Code, e.Message)
	if len(e.Fields) == 0 {
		return msg
	}
	fields := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, f.Field+": "+f.Message)
	}
	return msg + " (" + strings.Join(fields, "; ") + ")"
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ConfirmationPrompt returns the prompt of a CONFIRMATION_REQUIRED error.
func ConfirmationPrompt(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != CodeConfirmationRequired {
		return "", false
	}
	details, _ := apiErr.Details.(map[string]interface{})
	if prompt, ok := details["prompt"].(string); ok {
		return prompt, true
	}
	return apiErr.Message, true
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(cfg config.ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "BAD_RESPONSE", Message: strings.TrimSpace(string(raw))}
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			if len(env.Error.Details) > 0 {
				_ = json.Unmarshal(env.Error.Details, &apiErr.Details)
			}
			if apiErr.Code == CodeValidation {
				_ = json.Unmarshal(env.Error.Details, &apiErr.Fields)
			}
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func idPath(prefix string, id int64, suffix ...string) string {
	parts := append([]string{prefix, strconv.FormatInt(id, 10)}, suffix...)
	return strings.Join(parts, "/")
}
