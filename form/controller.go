// Package form drives the four GREEN-API console actions the way the browser
// form does: validate, post once, render status and response into a View.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	SettingsPath      = "/settings"
	StatePath         = "/state"
	SendMessagePath   = "/send-message"
	SendFileByURLPath = "/send-file-by-url"

	InitialInfo = "Enter connection parameters and call one of the methods"

	msgCredentials   = "Fill in idInstance and ApiTokenInstance"
	msgSendMessage   = "sendMessage requires chatId and message"
	msgSendFileByURL = "sendFileByUrl requires chatId and urlFile"
)

var (
	// ErrValidation is returned when a required field is blank; nothing was sent.
	ErrValidation = errors.New("validation error")
	// ErrNetwork is returned when the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")
	// ErrBusy is returned while another action is in flight.
	ErrBusy = errors.New("request already in flight")
)

type StatusState int

const (
	StateIdle StatusState = iota
	StateLoading
	StateSuccess
	StateError
)

func (s StatusState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status is what the badge shows.
type Status struct {
	State StatusState
	Text  string
}

// Fields mirrors the form inputs. Values are trimmed before use.
type Fields struct {
	IDInstance       string
	APITokenInstance string
	SendChatID       string
	SendMessage      string
	FileChatID       string
	FileURL          string
}

// Result is the outcome of an action that reached the backend. Non-2xx
// replies are results with State StateError, not Go errors.
type Result struct {
	State      StatusState
	StatusCode int
	Body       string
}

// View receives every visible state change.
type View interface {
	SetButtonsDisabled(disabled bool)
	SetStatus(status Status)
	SetResponse(body string)
	SetTokenVisibility(visibility TokenVisibility)
}

type Option func(*Controller)

// WithHTTPClient replaces the default client. The default has no timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.httpClient = client
	}
}

// Controller issues at most one request at a time against apiBase.
type Controller struct {
	apiBase    string
	httpClient *http.Client
	view       View
	logger     *zap.Logger

	mu       sync.Mutex
	inFlight bool
	token    TokenVisibility
}

func NewController(apiBase string, view View, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{},
		view:       view,
		logger:     logger.With(zap.String("component", "form")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init renders the initial state: token hidden, idle badge, info message.
func (c *Controller) Init() {
	c.mu.Lock()
	c.token = TokenVisibility{}
	token := c.token
	c.mu.Unlock()

	c.view.SetTokenVisibility(token)
	c.view.SetStatus(Status{State: StateIdle, Text: StateIdle.String()})
	c.view.SetResponse(prettyPayload(map[string]string{"info": InitialInfo}))
}

// ToggleTokenVisibility flips token masking and returns the new state.
func (c *Controller) ToggleTokenVisibility() TokenVisibility {
	c.mu.Lock()
	c.token.Visible = !c.token.Visible
	token := c.token
	c.mu.Unlock()

	c.view.SetTokenVisibility(token)
	return token
}

// TokenVisibility returns the current masking state.
func (c *Controller) TokenVisibility() TokenVisibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Busy reports whether the action buttons are currently disabled.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Controller) GetSettings(ctx context.Context, fields Fields) (Result, error) {
	return c.run(ctx, SettingsPath, func() (any, string) {
		creds, msg := credentials(fields)
		return creds, msg
	})
}

func (c *Controller) GetState(ctx context.Context, fields Fields) (Result, error) {
	return c.run(ctx, StatePath, func() (any, string) {
		creds, msg := credentials(fields)
		return creds, msg
	})
}

func (c *Controller) SendMessage(ctx context.Context, fields Fields) (Result, error) {
	return c.run(ctx, SendMessagePath, func() (any, string) {
		creds, msg := credentials(fields)
		if msg != "" {
			return nil, msg
		}
		chatID := strings.TrimSpace(fields.SendChatID)
		message := strings.TrimSpace(fields.SendMessage)
		if chatID == "" || message == "" {
			return nil, msgSendMessage
		}
		return sendMessageBody{credentialsBody: creds, ChatID: chatID, Message: message}, ""
	})
}

func (c *Controller) SendFileByURL(ctx context.Context, fields Fields) (Result, error) {
	return c.run(ctx, SendFileByURLPath, func() (any, string) {
		creds, msg := credentials(fields)
		if msg != "" {
			return nil, msg
		}
		chatID := strings.TrimSpace(fields.FileChatID)
		urlFile := strings.TrimSpace(fields.FileURL)
		if chatID == "" || urlFile == "" {
			return nil, msgSendFileByURL
		}
		return sendFileByURLBody{credentialsBody: creds, ChatID: chatID, URLFile: urlFile}, ""
	})
}

type credentialsBody struct {
	IDInstance       string `json:"idInstance"`
	APITokenInstance string `json:"apiTokenInstance"`
}

type sendMessageBody struct {
	credentialsBody
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendFileByURLBody struct {
	credentialsBody
	ChatID  string `json:"chatId"`
	URLFile string `json:"urlFile"`
}

func credentials(fields Fields) (credentialsBody, string) {
	creds := credentialsBody{
		IDInstance:       strings.TrimSpace(fields.IDInstance),
		APITokenInstance: strings.TrimSpace(fields.APITokenInstance),
	}
	if creds.IDInstance == "" || creds.APITokenInstance == "" {
		return credentialsBody{}, msgCredentials
	}
	return creds, ""
}

func (c *Controller) run(ctx context.Context, path string, build func() (any, string)) (Result, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}

	payload, msg := build()
	if msg != "" {
		release()
		body := errorPayload(msg)
		c.view.SetStatus(Status{State: StateError, Text: "validation error"})
		c.view.SetResponse(body)
		return Result{State: StateError, Body: body}, fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	c.view.SetButtonsDisabled(true)
	// the flag is cleared before the view sees enabled buttons
	defer func() {
		release()
		c.view.SetButtonsDisabled(false)
	}()
	c.view.SetStatus(Status{State: StateLoading, Text: StateLoading.String()})

	result, err := c.post(ctx, path, payload)
	if err != nil {
		c.logger.Debug("Request failed", zap.String("path", path), zap.Error(err))
		body := errorPayload(err.Error())
		c.view.SetStatus(Status{State: StateError, Text: "network error"})
		c.view.SetResponse(body)
		return Result{State: StateError, Body: body}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	c.logger.Debug("Request completed", zap.String("path", path), zap.Int("status", result.StatusCode))
	c.view.SetResponse(result.Body)
	c.view.SetStatus(Status{State: result.State, Text: fmt.Sprintf("%s %d", result.State, result.StatusCode)})
	return result, nil
}

func (c *Controller) post(ctx context.Context, path string, payload any) (Result, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(encoded))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	state := StateError
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		state = StateSuccess
	}
	return Result{
		State:      state,
		StatusCode: resp.StatusCode,
		Body:       FormatBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

// FormatBody pretty-prints JSON with a two-space indent when the content type
// says JSON and the body parses; anything else is returned verbatim. A JSON
// string body is shown as its unquoted value, as the browser form does.
func FormatBody(contentType string, raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if !strings.Contains(strings.ToLower(contentType), "application/json") || len(trimmed) == 0 {
		return string(raw)
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return string(raw)
		}
		return text
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func errorPayload(message string) string {
	return prettyPayload(map[string]map[string]string{"error": {"message": message}})
}

func prettyPayload(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}
