package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/service"
)

// gatewayTokenHeader carries the shared-secret token the gateway sends
// with every delivery
const gatewayTokenHeader = "asaas-access-token"

type WebhookHandler struct {
	service service.WebhookService
	logger  *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// @Summary Receive a gateway webhook event
// @Description Stores and processes one gateway event delivery. Always returns 200 for authenticated, well-formed deliveries.
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Router /webhooks/gateway [post]
func (h *WebhookHandler) HandleGatewayEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ProcessEvent(c.Request.Context(), payload, c.GetHeader(gatewayTokenHeader))
	if err != nil {
		// Only auth and malformed-envelope errors surface as error
		// statuses, everything else is acknowledged
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Webhook liveness probe
// @Description Lets the gateway verify the endpoint is reachable
// @Tags webhooks
// @Produce json
// @Success 200 {object} map[string]string
// @Router /webhooks/gateway [get]
func (h *WebhookHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
