package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DoneResponse is the body of GET /done.
type DoneResponse struct {
	Text string `json:"text" example:"done"`
}

// Done godoc
// @ID          done
// @Summary     Liveness check
// @Description Always returns {"text":"done"}; does not touch the database.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.DoneResponse
// @Router      /done [get]
func (h *Handlers) Done(c *gin.Context) {
	ok(c, http.StatusOK, DoneResponse{Text: "done"})
}

// Health godoc
// @ID          health
// @Summary     Process health
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// Readyz godoc
// @ID          readyz
// @Summary     Readiness check
// @Description Pings the database; 503 when it is unreachable.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /readyz [get]
func (h *Handlers) Readyz(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			fail(c, http.StatusServiceUnavailable, ErrCodeNotReady, "database unreachable")
			return
		}
	}
	ok(c, http.StatusOK, gin.H{"status": "ready"})
}
