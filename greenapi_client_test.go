package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bluefunda/greenapi-console/config"
	"github.com/bluefunda/greenapi-console/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testGatewayConfig(baseURL string) config.GreenAPIConfig {
	return config.GreenAPIConfig{
		BaseURL:        baseURL,
		TimeoutSeconds: 2,
		CircuitBreaker: config.CircuitBreakerConfig{
			Name:                "test-breaker",
			ConsecutiveFailures: 50,
			HalfOpenMaxRequests: 1,
			OpenTimeoutSeconds:  60,
			IntervalSeconds:     60,
			FailureRatio:        1,
			MinRequests:         100,
		},
	}
}

var testCreds = types.Credentials{IDInstance: "1101000001", APITokenInstance: "token"}

func TestGreenAPIClient_GetSettingsPath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/waInstance1101000001/getSettings/token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"wid":"79990000000@c.us"}`))
	}))
	defer server.Close()

	client := NewGreenAPIClient(testGatewayConfig(server.URL), zap.NewNop())
	resp, err := client.GetSettings(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.ContentType)
	require.Equal(t, `{"wid":"79990000000@c.us"}`, string(resp.Body))
}

func TestGreenAPIClient_GetStateInstancePath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/waInstance1101000001/getStateInstance/token", r.URL.Path)
		_, _ = w.Write([]byte(`{"stateInstance":"authorized"}`))
	}))
	defer server.Close()

	client := NewGreenAPIClient(testGatewayConfig(server.URL+"/"), zap.NewNop())
	resp, err := client.GetStateInstance(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, `{"stateInstance":"authorized"}`, string(resp.Body))
}

func TestGreenAPIClient_SendMessagePayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/waInstance1101000001/sendMessage/token", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"chatId": "77771234567@c.us", "message": "hello"}, body)

		_, _ = w.Write([]byte(`{"idMessage":"1"}`))
	}))
	defer server.Close()

	client := NewGreenAPIClient(testGatewayConfig(server.URL), zap.NewNop())
	resp, err := client.SendMessage(context.Background(), types.SendMessageParams{
		Credentials: testCreds,
		ChatID:      "77771234567@c.us",
		Message:     "hello",
	})
	require.NoError(t, err)
	require.Equal(t, `{"idMessage":"1"}`, string(resp.Body))
}

func TestGreenAPIClient_SendFileByURLPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/waInstance1101000001/sendFileByUrl/token", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://x/img.png", body["urlFile"])
		require.Equal(t, "img.png", body["fileName"])

		_, _ = w.Write([]byte(`{"idMessage":"abc"}`))
	}))
	defer server.Close()

	client := NewGreenAPIClient(testGatewayConfig(server.URL), zap.NewNop())
	resp, err := client.SendFileByURL(context.Background(), types.SendFileByURLParams{
		Credentials: testCreds,
		ChatID:      "77771234567@c.us",
		URLFile:     "https://x/img.png",
		FileName:    "img.png",
	})
	require.NoError(t, err)
	require.Equal(t, `{"idMessage":"abc"}`, string(resp.Body))
}

func TestGreenAPIClient_DoesNotRetryServerErrors(t *testing.T) {
	t.Parallel()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"temporary"}`))
	}))
	defer server.Close()

	client := NewGreenAPIClient(testGatewayConfig(server.URL), zap.NewNop())
	resp, err := client.GetSettings(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestGreenAPIClient_CircuitBreakerOpensAfterFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testGatewayConfig(server.URL)
	cfg.CircuitBreaker.ConsecutiveFailures = 1
	cfg.CircuitBreaker.MinRequests = 1
	cfg.CircuitBreaker.OpenTimeoutSeconds = 300
	client := NewGreenAPIClient(cfg, zap.NewNop())

	_, err := client.GetSettings(context.Background(), testCreds)
	require.NoError(t, err)
	require.Equal(t, "open", client.BreakerState())

	_, err = client.GetSettings(context.Background(), testCreds)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCircuitBreakerOpen))
}

func TestGreenAPIClient_ClientErrorsKeepBreakerClosed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testGatewayConfig(server.URL)
	cfg.CircuitBreaker.ConsecutiveFailures = 1
	cfg.CircuitBreaker.MinRequests = 1
	client := NewGreenAPIClient(cfg, zap.NewNop())

	for i := 0; i < 3; i++ {
		resp, err := client.GetStateInstance(context.Background(), testCreds)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	require.Equal(t, "closed", client.BreakerState())
}

func TestGreenAPIClient_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	client := NewGreenAPIClient(testGatewayConfig("://invalid"), zap.NewNop())
	_, err := client.GetSettings(context.Background(), testCreds)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid upstream url")
}

func TestGreenAPIClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewGreenAPIClient(testGatewayConfig(baseURL), zap.NewNop())
	_, err := client.GetSettings(context.Background(), testCreds)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	require.Equal(t, "green-api request failed", upstreamErr.Message)
}

const secretToken = "SECRETTOKEN123"

// requireNoToken fails when any captured entry mentions secretToken.
func requireNoToken(t *testing.T, logs *observer.ObservedLogs) {
	t.Helper()
	for _, entry := range logs.All() {
		line := entry.Message + " " + fmt.Sprint(entry.ContextMap())
		require.False(t, strings.Contains(line, secretToken), "token logged in %q: %s", entry.Message, line)
	}
}

func TestGreenAPIClient_TransportFailureRedactsToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	client := NewGreenAPIClient(testGatewayConfig(baseURL), zap.New(core))

	_, err := client.GetSettings(context.Background(), types.Credentials{IDInstance: "1", APITokenInstance: secretToken})
	require.Error(t, err)
	require.NotContains(t, err.Error(), secretToken)
	require.Contains(t, err.Error(), "/waInstance1/getSettings/[REDACTED]")

	require.NotZero(t, logs.FilterMessage("Gateway call failed").Len())
	requireNoToken(t, logs)
}

func TestGreenAPIClient_InvalidBaseURLRedactsToken(t *testing.T) {
	t.Parallel()

	client := NewGreenAPIClient(testGatewayConfig("://invalid"), zap.NewNop())
	_, err := client.GetSettings(context.Background(), types.Credentials{IDInstance: "1", APITokenInstance: secretToken})
	require.Error(t, err)
	require.NotContains(t, err.Error(), secretToken)
}

func TestRedactURL_KeepsCause(t *testing.T) {
	t.Parallel()

	err := redactURL(&url.Error{Op: "Get", URL: "http://host/waInstance1/getSettings/" + secretToken, Err: context.DeadlineExceeded})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, `Get "http://host/waInstance1/getSettings/[REDACTED]": context deadline exceeded`, err.Error())

	plain := errors.New("plain")
	require.Equal(t, plain, redactURL(plain))
}
