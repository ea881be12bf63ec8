package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluefunda/greenapi-console/config"
	"github.com/bluefunda/greenapi-console/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Gateway Endpoint Constants
const (
	GATEWAY_GET_SETTINGS_ENDPOINT       = "/waInstance%s/getSettings/%s"
	GATEWAY_GET_STATE_INSTANCE_ENDPOINT = "/waInstance%s/getStateInstance/%s"
	GATEWAY_SEND_MESSAGE_ENDPOINT       = "/waInstance%s/sendMessage/%s"
	GATEWAY_SEND_FILE_BY_URL_ENDPOINT   = "/waInstance%s/sendFileByUrl/%s"
)

const redactedToken = "[REDACTED]"

// ErrCircuitBreakerOpen is returned while the breaker rejects calls.
var ErrCircuitBreakerOpen = errors.New("green-api circuit breaker open")

// UpstreamError describes a gateway call that produced no usable response.
type UpstreamError struct {
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// GreenAPIClient talks to the GREEN-API REST gateway.
type GreenAPIClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.TwoStepCircuitBreaker
	logger     *zap.Logger
}

// NewGreenAPIClient creates a new gateway client
func NewGreenAPIClient(cfg config.GreenAPIConfig, logger *zap.Logger) *GreenAPIClient {
	logger = logger.With(zap.String("component", "green_api_client"))
	cb := cfg.CircuitBreaker

	settings := gobreaker.Settings{
		Name:        cb.Name,
		MaxRequests: cb.HalfOpenMaxRequests,
		Interval:    cb.Interval(),
		Timeout:     cb.OpenTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cb.ConsecutiveFailures {
				return true
			}
			if counts.Requests < cb.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cb.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &GreenAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		breaker:    gobreaker.NewTwoStepCircuitBreaker(settings),
		logger:     logger,
	}
}

// GetSettings retrieves the instance settings
func (c *GreenAPIClient) GetSettings(ctx context.Context, creds types.Credentials) (types.GatewayResponse, error) {
	path := fmt.Sprintf(GATEWAY_GET_SETTINGS_ENDPOINT, creds.IDInstance, creds.APITokenInstance)
	return c.do(ctx, "getSettings", creds.IDInstance, http.MethodGet, path, nil)
}

// GetStateInstance retrieves the instance authorization state
func (c *GreenAPIClient) GetStateInstance(ctx context.Context, creds types.Credentials) (types.GatewayResponse, error) {
	path := fmt.Sprintf(GATEWAY_GET_STATE_INSTANCE_ENDPOINT, creds.IDInstance, creds.APITokenInstance)
	return c.do(ctx, "getStateInstance", creds.IDInstance, http.MethodGet, path, nil)
}

// SendMessage sends a text message to a chat
func (c *GreenAPIClient) SendMessage(ctx context.Context, params types.SendMessageParams) (types.GatewayResponse, error) {
	path := fmt.Sprintf(GATEWAY_SEND_MESSAGE_ENDPOINT, params.IDInstance, params.APITokenInstance)
	payload := map[string]string{
		"chatId":  params.ChatID,
		"message": params.Message,
	}
	return c.do(ctx, "sendMessage", params.IDInstance, http.MethodPost, path, payload)
}

// SendFileByURL sends a file hosted at a public URL to a chat
func (c *GreenAPIClient) SendFileByURL(ctx context.Context, params types.SendFileByURLParams) (types.GatewayResponse, error) {
	path := fmt.Sprintf(GATEWAY_SEND_FILE_BY_URL_ENDPOINT, params.IDInstance, params.APITokenInstance)
	payload := map[string]string{
		"chatId":   params.ChatID,
		"urlFile":  params.URLFile,
		"fileName": params.FileName,
	}
	return c.do(ctx, "sendFileByUrl", params.IDInstance, http.MethodPost, path, payload)
}

// do performs a single gateway call. The path embeds the API token, so only
// the method name and instance id are logged.
func (c *GreenAPIClient) do(ctx context.Context, method, idInstance, httpMethod, path string, payload any) (types.GatewayResponse, error) {
	fullURL := c.baseURL + path
	if _, err := url.ParseRequestURI(fullURL); err != nil {
		return types.GatewayResponse{}, &UpstreamError{Message: "invalid upstream url", Cause: redactURL(err)}
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return types.GatewayResponse{}, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, fullURL, body)
	if err != nil {
		return types.GatewayResponse{}, &UpstreamError{Message: "build green-api request", Cause: redactURL(err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	done, err := c.breaker.Allow()
	if err != nil {
		c.logger.Warn("Gateway call rejected by circuit breaker",
			zap.String("method", method),
			zap.String("id_instance", idInstance))
		return types.GatewayResponse{}, &UpstreamError{
			Message: "green-api circuit breaker is open",
			Cause:   fmt.Errorf("%w: %v", ErrCircuitBreakerOpen, err),
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		done(false)
		err = redactURL(err)
		c.logger.Warn("Gateway call failed",
			zap.String("method", method),
			zap.String("id_instance", idInstance),
			zap.Error(err))
		return types.GatewayResponse{}, &UpstreamError{Message: "green-api request failed", Cause: err}
	}
	defer resp.Body.Close()

	done(resp.StatusCode < http.StatusInternalServerError)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.GatewayResponse{}, &UpstreamError{Message: "read green-api response", Cause: redactURL(err)}
	}

	c.logger.Info("Gateway call completed",
		zap.String("method", method),
		zap.String("id_instance", idInstance),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_length", len(raw)),
		zap.Duration("latency", time.Since(started)))

	return types.GatewayResponse{
		StatusCode:  resp.StatusCode,
		Body:        raw,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// redactURL drops the token path segment from the URL a transport error
// carries. The wrapped cause is kept so errors.Is still sees timeouts.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := urlErr.URL
	if i := strings.LastIndex(redacted, "/"); i >= 0 {
		redacted = redacted[:i+1] + redactedToken
	}
	return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *GreenAPIClient) BreakerState() string {
	return c.breaker.State().String()
}
