package capture

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/envelopectl/internal/auth"
	"github.com/danmuck/envelopectl/internal/config"
	"github.com/danmuck/envelopectl/internal/observability"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/report"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server stands in for an ingest endpoint and records every upload it is
// sent.
type Server struct {
	Config    config.CaptureConfig
	Store     *Store
	Validator auth.Validator
	Started   time.Time

	router *gin.Engine
}

func New(cfg config.CaptureConfig) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Encoding", auth.HeaderSentryAuth},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Config:  cfg,
		Store:   NewStore(cfg.MaxStored),
		Started: time.Now(),
		router:  r,
	}
	if keys := cfg.ProjectKeys(); keys != nil {
		s.Validator = auth.ProjectKeys(keys)
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Config.Addr).Msg("capture server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.Started).String(),
			"service":  s.Config.Name,
			"captured": s.Store.Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/:project")
	api.POST("/envelope/", s.ingest(KindEnvelope))
	api.POST("/minidump/", s.ingest(KindMinidump))

	r.GET("/requests", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"requests": s.Store.All()})
	})
	r.GET("/requests/:seq", s.showRequest)
	r.DELETE("/requests", func(c *gin.Context) {
		s.Store.Clear()
		c.Status(http.StatusNoContent)
	})
}

func (s *Server) ingest(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		project := c.Param("project")
		c.Set(observability.KeyCaptureKind, kind)
		if s.Validator != nil {
			if err := s.Validator.Validate(project, auth.RequestKey(c.Request)); err != nil {
				c.Set(observability.KeyAuthError, err.Error())
				status := http.StatusUnauthorized
				if errors.Is(err, auth.ErrUnknownProject) {
					status = http.StatusNotFound
				}
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}
		}

		var body io.Reader = c.Request.Body
		if s.Config.MaxBody > 0 {
			body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.MaxBody)
		}
		data, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		req := s.Store.Add(Request{
			Kind:            kind,
			Project:         project,
			ContentType:     c.GetHeader("Content-Type"),
			ContentEncoding: c.GetHeader("Content-Encoding"),
			UserAgent:       c.Request.UserAgent(),
			Body:            data,
		})
		c.Set(observability.KeyCaptureSeq, req.Seq)
		observability.RecordCapture(kind, req.ContentEncoding, req.Size)
		log.Debug().
			Int("seq", req.Seq).
			Str("kind", kind).
			Str("project", project).
			Int("bytes", req.Size).
			Msg("request captured")
		c.String(http.StatusOK, "OK")
	}
}

func (s *Server) showRequest(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be an integer"})
		return
	}
	req, err := s.Store.Get(seq)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"request": req}
	start := time.Now()
	switch req.Kind {
	case KindEnvelope:
		env, err := req.Envelope(s.Config.Limits.EnvelopeLimits(), s.Config.Limits.MaxInflatedBytes)
		observability.RecordDecode(observability.FormatEnvelope, time.Since(start), err)
		if err != nil {
			resp["error"] = err.Error()
			break
		}
		resp["envelope"] = report.FromEnvelope(env, true)
	case KindMinidump:
		bundle, err := req.CrashBundle(s.Config.Limits.MaxInflatedBytes)
		observability.RecordDecode(observability.FormatCrashUpload, time.Since(start), err)
		if err != nil {
			resp["error"] = err.Error()
			break
		}
		resp["crash"] = report.FromBundle(bundle, breadcrumbs.DefaultOptions())
	}
	if _, failed := resp["error"]; failed {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
