package models

// REST API request and response structures

// CredentialsRequest carries the gateway credentials every call needs
type CredentialsRequest struct {
	IDInstance       string `json:"idInstance" validate:"required"`
	APITokenInstance string `json:"apiTokenInstance" validate:"required"`
}

// SendMessageRequest for POST /api/v1/send-message
type SendMessageRequest struct {
	CredentialsRequest
	ChatID  string `json:"chatId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendFileByURLRequest for POST /api/v1/send-file-by-url
type SendFileByURLRequest struct {
	CredentialsRequest
	ChatID  string `json:"chatId" validate:"required"`
	URLFile string `json:"urlFile" validate:"required,url"`
}

// APIError is an error raised by this backend rather than relayed from the gateway
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// ErrorResponse is the envelope for APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// HealthResponse for GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Breaker   string `json:"circuit_breaker,omitempty"`
}

// VersionResponse for GET /version
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}
