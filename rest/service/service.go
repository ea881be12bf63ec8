package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/bluefunda/greenapi-console/rest/models"
	"github.com/bluefunda/greenapi-console/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	personalChatSuffix = "@c.us"
	groupChatSuffix    = "@g.us"
	maxFileNameLength  = 255
)

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	groupID    = regexp.MustCompile(`^\d+(-\d+)?$`)
)

// Service validates incoming requests and forwards them to the gateway.
type Service struct {
	client      types.GatewayClient
	validate    *validator.Validate
	logger      *zap.Logger
	breakerOpen error
}

// New creates a Service. breakerOpen is the sentinel the client wraps when
// its circuit breaker rejects a call; nil disables the 503 mapping.
func New(client types.GatewayClient, logger *zap.Logger, breakerOpen error) *Service {
	return &Service{
		client:      client,
		validate:    validator.New(),
		logger:      logger.With(zap.String("component", "service")),
		breakerOpen: breakerOpen,
	}
}

func (s *Service) GetSettings(ctx context.Context, req models.CredentialsRequest) (types.GatewayResponse, *models.APIError) {
	creds, apiErr := s.credentials(req)
	if apiErr != nil {
		return types.GatewayResponse{}, apiErr
	}

	resp, err := s.client.GetSettings(ctx, creds)
	if err != nil {
		return types.GatewayResponse{}, s.upstreamError("getSettings", err)
	}
	return resp, nil
}

func (s *Service) GetState(ctx context.Context, req models.CredentialsRequest) (types.GatewayResponse, *models.APIError) {
	creds, apiErr := s.credentials(req)
	if apiErr != nil {
		return types.GatewayResponse{}, apiErr
	}

	resp, err := s.client.GetStateInstance(ctx, creds)
	if err != nil {
		return types.GatewayResponse{}, s.upstreamError("getStateInstance", err)
	}
	return resp, nil
}

func (s *Service) SendMessage(ctx context.Context, req models.SendMessageRequest) (types.GatewayResponse, *models.APIError) {
	req.IDInstance = strings.TrimSpace(req.IDInstance)
	req.APITokenInstance = strings.TrimSpace(req.APITokenInstance)
	req.ChatID = strings.TrimSpace(req.ChatID)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		return types.GatewayResponse{}, validationError(err)
	}

	chatID, err := NormalizeChatID(req.ChatID)
	if err != nil {
		return types.GatewayResponse{}, invalidInput("chatId", err.Error())
	}

	resp, err := s.client.SendMessage(ctx, types.SendMessageParams{
		Credentials: types.Credentials{IDInstance: req.IDInstance, APITokenInstance: req.APITokenInstance},
		ChatID:      chatID,
		Message:     req.Message,
	})
	if err != nil {
		return types.GatewayResponse{}, s.upstreamError("sendMessage", err)
	}
	return resp, nil
}

func (s *Service) SendFileByURL(ctx context.Context, req models.SendFileByURLRequest) (types.GatewayResponse, *models.APIError) {
	req.IDInstance = strings.TrimSpace(req.IDInstance)
	req.APITokenInstance = strings.TrimSpace(req.APITokenInstance)
	req.ChatID = strings.TrimSpace(req.ChatID)
	req.URLFile = strings.TrimSpace(req.URLFile)
	if err := s.validate.Struct(req); err != nil {
		return types.GatewayResponse{}, validationError(err)
	}

	chatID, err := NormalizeChatID(req.ChatID)
	if err != nil {
		return types.GatewayResponse{}, invalidInput("chatId", err.Error())
	}
	if err := validateURLFile(req.URLFile); err != nil {
		return types.GatewayResponse{}, invalidInput("urlFile", err.Error())
	}
	fileName, err := ExtractFileName(req.URLFile)
	if err != nil {
		return types.GatewayResponse{}, invalidInput("urlFile", err.Error())
	}

	resp, err := s.client.SendFileByURL(ctx, types.SendFileByURLParams{
		Credentials: types.Credentials{IDInstance: req.IDInstance, APITokenInstance: req.APITokenInstance},
		ChatID:      chatID,
		URLFile:     req.URLFile,
		FileName:    fileName,
	})
	if err != nil {
		return types.GatewayResponse{}, s.upstreamError("sendFileByUrl", err)
	}
	return resp, nil
}

func (s *Service) credentials(req models.CredentialsRequest) (types.Credentials, *models.APIError) {
	req.IDInstance = strings.TrimSpace(req.IDInstance)
	req.APITokenInstance = strings.TrimSpace(req.APITokenInstance)
	if err := s.validate.Struct(req); err != nil {
		return types.Credentials{}, validationError(err)
	}
	return types.Credentials{IDInstance: req.IDInstance, APITokenInstance: req.APITokenInstance}, nil
}

// NormalizeChatID turns a bare phone number into a personal chat id and
// checks that explicit personal or group ids are well formed.
func NormalizeChatID(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", fmt.Errorf("chatId is required")
	}

	switch {
	case strings.HasSuffix(candidate, personalChatSuffix):
		if !digitsOnly.MatchString(strings.TrimSuffix(candidate, personalChatSuffix)) {
			return "", fmt.Errorf("chatId must contain only digits before %s", personalChatSuffix)
		}
		return candidate, nil
	case strings.HasSuffix(candidate, groupChatSuffix):
		if !groupID.MatchString(strings.TrimSuffix(candidate, groupChatSuffix)) {
			return "", fmt.Errorf("group chatId must look like digits[-digits]%s", groupChatSuffix)
		}
		return candidate, nil
	}

	if !digitsOnly.MatchString(candidate) {
		return "", fmt.Errorf("chatId must contain only digits")
	}
	return candidate + personalChatSuffix, nil
}

func validateURLFile(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("urlFile must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("urlFile must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("urlFile must include a host")
	}
	return nil
}

// ExtractFileName derives the gateway fileName from the last path segment of rawURL.
func ExtractFileName(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url")
	}

	fileName := path.Base(parsed.Path)
	if fileName == "." || fileName == "/" || fileName == "" {
		return "", fmt.Errorf("cannot extract fileName from urlFile")
	}
	if decoded, unescapeErr := url.PathUnescape(fileName); unescapeErr == nil {
		fileName = decoded
	}
	if strings.ContainsAny(fileName, `/\`) {
		return "", fmt.Errorf("invalid fileName extracted from urlFile")
	}
	if len(fileName) > maxFileNameLength {
		return "", fmt.Errorf("fileName is too long")
	}
	return fileName, nil
}

func validationError(err error) *models.APIError {
	return &models.APIError{
		StatusCode: http.StatusBadRequest,
		Code:       "validation_error",
		Message:    "invalid request payload",
		Details:    err.Error(),
	}
}

func invalidInput(field, message string) *models.APIError {
	return &models.APIError{
		StatusCode: http.StatusBadRequest,
		Code:       "validation_error",
		Message:    "invalid request payload",
		Details: map[string]string{
			"field":   field,
			"message": message,
		},
	}
}

func (s *Service) upstreamError(method string, err error) *models.APIError {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case s.breakerOpen != nil && errors.Is(err, s.breakerOpen):
		status = http.StatusServiceUnavailable
	}

	s.logger.Warn("Upstream call failed",
		zap.String("method", method),
		zap.Int("status", status),
		zap.Error(err))

	return &models.APIError{
		StatusCode: status,
		Code:       "upstream_error",
		Message:    err.Error(),
	}
}
