package types

import "context"

// Gateway request structures - shared between CLI and REST
type Credentials struct {
	IDInstance       string `json:"idInstance"`
	APITokenInstance string `json:"apiTokenInstance"`
}

type SendMessageParams struct {
	Credentials
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type SendFileByURLParams struct {
	Credentials
	ChatID   string `json:"chatId"`
	URLFile  string `json:"urlFile"`
	FileName string `json:"fileName"`
}

// GatewayResponse is a gateway reply relayed without interpretation.
type GatewayResponse struct {
	StatusCode  int    `json:"status_code"`
	Body        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// GatewayClient interface - shared contract
type GatewayClient interface {
	GetSettings(ctx context.Context, creds Credentials) (GatewayResponse, error)
	GetStateInstance(ctx context.Context, creds Credentials) (GatewayResponse, error)
	SendMessage(ctx context.Context, params SendMessageParams) (GatewayResponse, error)
	SendFileByURL(ctx context.Context, params SendFileByURLParams) (GatewayResponse, error)
}
