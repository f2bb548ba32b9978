// Package dashboard serves the AgentDesk JSON API and the live event stream.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/agentdesk/internal/agent"
	"github.com/zulandar/agentdesk/internal/bus"
	"github.com/zulandar/agentdesk/internal/dialogue"
	"github.com/zulandar/agentdesk/internal/feedback"
	"github.com/zulandar/agentdesk/internal/nft"
	"github.com/zulandar/agentdesk/internal/portfolio"
	"github.com/zulandar/agentdesk/internal/wallet"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultHeartbeat is the SSE keep-alive interval.
const DefaultHeartbeat = 15 * time.Second

// Services are the collaborators the API is built on.
type Services struct {
	DB        *gorm.DB
	Bus       *bus.Bus
	Store     *agent.Store
	Dialogue  *dialogue.Orchestrator
	Wallets   *wallet.Service
	NFTs      *nft.Service
	Portfolio *portfolio.Service
	Feedback  *feedback.Service
	Log       *zap.Logger

	// Heartbeat overrides DefaultHeartbeat.
	Heartbeat time.Duration
}

func (s Services) validate() error {
	switch {
	case s.DB == nil:
		return fmt.Errorf("dashboard: db is required")
	case s.Bus == nil:
		return fmt.Errorf("dashboard: bus is required")
	case s.Store == nil || s.Dialogue == nil:
		return fmt.Errorf("dashboard: agent store and dialogue are required")
	case s.Wallets == nil || s.NFTs == nil || s.Portfolio == nil || s.Feedback == nil:
		return fmt.Errorf("dashboard: wallet, nft, portfolio and feedback services are required")
	}
	return nil
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Services
	Port int
	Out  io.Writer
}

// NewRouter builds the gin engine serving the API.
func NewRouter(svc Services) (*gin.Engine, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if svc.Log == nil {
		svc.Log = zap.NewNop()
	}
	if svc.Heartbeat <= 0 {
		svc.Heartbeat = DefaultHeartbeat
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(svc.Log))
	registerRoutes(router, &api{Services: svc})
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts.Services)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// requestLogger logs one line per request at debug level, warning on 5xx.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("dashboard: request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("dashboard: request", fields...)
	}
}
