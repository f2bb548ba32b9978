package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/ai"
	"github.com/zulandar/agentdesk/internal/auth"
	"github.com/zulandar/agentdesk/internal/chain"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/wallet"
)

// statusFor maps a service error to an HTTP status. fallback applies to
// errors with no known class: 500 for local work, 502 when the handler called
// an external provider.
func statusFor(err error, fallback int) int {
	var apiErr *chain.APIError
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, agent.ErrUnknownAgent),
		errors.Is(err, agent.ErrUnknownCoordination):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrPrimaryWallet),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, agent.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &apiErr), errors.Is(err, ai.ErrEmptyResponse), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	}
	return fallback
}

// fail aborts the request with a JSON error body.
func fail(c *gin.Context, err error) {
	failWith(c, err, http.StatusInternalServerError)
}

// failUpstream aborts a request whose unclassified errors came from an
// external provider.
func failUpstream(c *gin.Context, err error) {
	failWith(c, err, http.StatusBadGateway)
}

func failWith(c *gin.Context, err error, fallback int) {
	c.Error(err)
	c.AbortWithStatusJSON(statusFor(err, fallback), gin.H{"error": err.Error()})
}

// badRequest aborts with 400 for malformed request bodies.
func badRequest(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}
