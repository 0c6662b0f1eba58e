// Package server assembles the payable batch pipeline and runs its HTTP
// surface and workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/ctxutil"
	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/ecode"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/net/resp"
	"github.com/ncobase/paybatch/payable/handler"
	"github.com/ncobase/paybatch/payable/service"
	"github.com/ncobase/paybatch/version"
	"golang.org/x/sync/errgroup"
)

// App is the assembled pipeline.
type App struct {
	cfg     *config.Config
	logger  *logger.Logger
	data    *data.Data
	work    WorkQueue
	relay   *event.Relay
	bus     *event.Bus
	sink    *event.KafkaSink
	service *service.Service
	handler *handler.Handler
}

func newApp(
	cfg *config.Config,
	l *logger.Logger,
	d *data.Data,
	work WorkQueue,
	relay *event.Relay,
	bus *event.Bus,
	svc *service.Service,
	h *handler.Handler,
	sink *event.KafkaSink,
) *App {
	return &App{
		cfg:     cfg,
		logger:  l,
		data:    d,
		work:    work,
		relay:   relay,
		bus:     bus,
		sink:    sink,
		service: svc,
		handler: h,
	}
}

// Service returns the payable services.
func (a *App) Service() *service.Service { return a.service }

// Router builds the HTTP router.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ctxutil.TraceMiddleware())
	r.Use(a.loggerMiddleware())

	r.GET("/health", a.health)
	a.handler.RegisterRoutes(r)
	return r
}

func (a *App) health(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.data.Ping(ctx); err != nil {
		a.logger.Errorf(ctx, "health: %v", err)
		resp.Fail(c.Writer, resp.WithCode(ecode.ServiceUnavailable, "database unavailable"))
		return
	}
	resp.Success(c.Writer, map[string]any{
		"status":  "healthy",
		"version": version.Version,
		"events":  a.bus.GetStats(),
		"kafka":   a.sink != nil,
	})
}

// RunWorkers runs the outbox relay and the item workers until ctx is done.
func (a *App) RunWorkers(ctx context.Context) error {
	go a.relay.Run(ctx)
	a.logger.Infof(ctx, "processing queue %s with concurrency %d", a.work.Name(), a.cfg.Queue.Concurrency)
	return a.work.Process(ctx, a.cfg.Queue.Concurrency, a.service.Worker.Handle)
}

// Serve runs the HTTP server next to the workers until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.RunWorkers(gctx)
	})
	g.Go(func() error {
		a.logger.Infof(gctx, "starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.logger.Infof(context.Background(), "shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Infof(c.Request.Context(), "%s %s %d %s %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}
