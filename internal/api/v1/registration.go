package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendaflow/vendaflow/internal/api/dto"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
	"github.com/vendaflow/vendaflow/internal/logger"
	"github.com/vendaflow/vendaflow/internal/service"
)

type RegistrationHandler struct {
	service service.RegistrationService
	logger  *logger.Logger
}

func NewRegistrationHandler(service service.RegistrationService, logger *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, logger: logger}
}

// @Summary Register a new customer
// @Description Runs the payment-first registration flow: charge first, provision after confirmation
// @Tags registrations
// @Accept json
// @Produce json
// @Param registration body dto.RegistrationRequest true "Registration request"
// @Success 201 {object} dto.RegistrationResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /registrations [post]
func (h *RegistrationHandler) ProcessRegistration(c *gin.Context) {
	var req dto.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ProcessRegistration(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	// Business failures (declined, timed out) are reported in the body,
	// the flow itself ran to a defined outcome
	status := http.StatusOK
	if resp.Success {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}
