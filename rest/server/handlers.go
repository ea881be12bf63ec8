package server

import (
	"net/http"

	"github.com/bluefunda/greenapi-console/rest/models"
	"github.com/bluefunda/greenapi-console/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (rs *RestServer) getSettingsHandler(c *gin.Context) {
	var req models.CredentialsRequest
	if !rs.bindJSON(c, &req) {
		return
	}

	resp, apiErr := rs.service.GetSettings(c.Request.Context(), req)
	rs.reply(c, resp, apiErr)
}

func (rs *RestServer) getStateHandler(c *gin.Context) {
	var req models.CredentialsRequest
	if !rs.bindJSON(c, &req) {
		return
	}

	resp, apiErr := rs.service.GetState(c.Request.Context(), req)
	rs.reply(c, resp, apiErr)
}

func (rs *RestServer) sendMessageHandler(c *gin.Context) {
	var req models.SendMessageRequest
	if !rs.bindJSON(c, &req) {
		return
	}

	resp, apiErr := rs.service.SendMessage(c.Request.Context(), req)
	rs.reply(c, resp, apiErr)
}

func (rs *RestServer) sendFileByURLHandler(c *gin.Context) {
	var req models.SendFileByURLRequest
	if !rs.bindJSON(c, &req) {
		return
	}

	resp, apiErr := rs.service.SendFileByURL(c.Request.Context(), req)
	rs.reply(c, resp, apiErr)
}

// bindJSON decodes the body only; models carry no binding tags and required
// fields are checked by the service after trimming.
func (rs *RestServer) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		rs.sendError(c, &models.APIError{
			StatusCode: http.StatusBadRequest,
			Code:       "bad_request",
			Message:    "invalid JSON payload",
			Details:    err.Error(),
		})
		return false
	}
	return true
}

// reply relays the gateway response unmodified, or the service error.
func (rs *RestServer) reply(c *gin.Context, resp types.GatewayResponse, apiErr *models.APIError) {
	if apiErr != nil {
		rs.sendError(c, apiErr)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// sendError sends an error API response
func (rs *RestServer) sendError(c *gin.Context, apiErr *models.APIError) {
	status := apiErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	rs.logger.Warn("API error",
		zap.String("request_id", GetRequestID(c)),
		zap.String("code", apiErr.Code),
		zap.Int("status", status))

	c.JSON(status, models.ErrorResponse{Error: *apiErr})
}
