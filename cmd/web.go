package cmd

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zalepa/aduscore/export"
	"github.com/zalepa/aduscore/internal/config"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/metrics"
	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/internal/store"
)

//go:embed web.html
var htmlContent embed.FS

const (
	sessionCookie   = "aduscore_session"
	shutdownTimeout = 10 * time.Second
)

type metadata struct {
	Counties map[string][]labelValue `json:"counties"`
	Metrics  []labelValue            `json:"metrics"`
}

type labelValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type seriesResponse struct {
	Title  string       `json:"title"`
	Dates  []string     `json:"dates"`
	Series []seriesData `json:"series"`
}

type seriesData struct {
	Name   string     `json:"name"`
	Slug   string     `json:"slug"`
	Value  *float64   `json:"value"`
	Grade  string     `json:"grade"`
	Values []*float64 `json:"values"`
}

type selectionRequest struct {
	Slug string `json:"slug"`
}

// webServer holds the handlers' dependencies.
type webServer struct {
	builder    *scores.Builder
	selection  *store.Selection
	metrics    *metrics.Metrics
	log        logger.Logger
	sessionTTL time.Duration
}

// Web implements the "web" subcommand.
func Web(args []string) {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	port := fs.Int("port", 0, "HTTP server port, overrides server.port")
	cf := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore web [-port 8080] [-data dir]\n\nStart the scorecard dashboard and JSON API.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a, err := newApp(ctx, cf, m)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer a.Close()
	if *port != 0 {
		a.cfg.Server.Port = *port
	}

	kv, err := openSessionStore(ctx, a.cfg.Redis, a.log)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer kv.Close()

	gin.SetMode(gin.ReleaseMode)
	s := &webServer{
		builder:    a.builder,
		selection:  store.NewSelection(kv, a.cfg.Redis.TTL),
		metrics:    m,
		log:        a.log,
		sessionTTL: a.cfg.Redis.TTL,
	}
	srv := &http.Server{
		Addr:         a.cfg.Server.Address(),
		Handler:      s.router(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	fmt.Printf("serving on http://%s\n", srv.Addr)
	if err := runServer(ctx, srv, a.log); err != nil {
		fatalf("server error: %v", err)
	}
}

// openSessionStore returns Redis when an address is configured and the
// in-memory store otherwise.
func openSessionStore(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (store.KV, error) {
	if cfg.Address == "" {
		log.Info("Using in-memory session store")
		return store.NewMemory(), nil
	}
	client, err := store.NewRedisClient(ctx, store.RedisOptions{
		Address:  cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Using Redis session store", logger.String("address", cfg.Address))
	return store.NewRedis(client, cfg.Prefix), nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}

func (s *webServer) router() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger(), gin.Recovery(), s.metrics.Middleware())

	r.GET("/", func(c *gin.Context) {
		data, _ := htmlContent.ReadFile("web.html")
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/metadata", s.getMetadata)
	api.GET("/series", s.getSeries)
	api.GET("/towns", s.listTowns)
	api.GET("/towns/:slug", s.getTown)
	api.GET("/scores", s.listScores)
	api.GET("/statewide", s.getStatewide)
	api.GET("/export/towns.csv", s.exportTownsCSV)
	api.GET("/export/towns.xlsx", s.exportTownsXLSX)
	api.GET("/export/permits/:slug", s.exportPermits)
	api.GET("/selection", s.getSelection)
	api.PUT("/selection", s.putSelection)
	return r
}

func (s *webServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status_code", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)))
	}
}

// fail maps err to a JSON error response.
func (s *webServer) fail(c *gin.Context, err error) {
	if errors.Is(err, scores.ErrTownNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Town not found"})
		return
	}
	s.log.Error("Request failed", logger.String("path", c.Request.URL.Path), logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (s *webServer) getMetadata(c *gin.Context) {
	towns, err := s.builder.Towns(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	counties := make(map[string][]labelValue)
	for _, t := range towns {
		counties[t.County] = append(counties[t.County], labelValue{Value: t.Slug, Label: t.Name})
	}
	for _, list := range counties {
		sort.Slice(list, func(i, j int) bool { return list[i].Label < list[j].Label })
	}
	ms := make([]labelValue, len(validMetrics))
	for i, m := range validMetrics {
		ms[i] = labelValue{Value: m, Label: metricLabel(m)}
	}
	c.JSON(http.StatusOK, metadata{Counties: counties, Metrics: ms})
}

// getSeries returns the ranking for ?metric= with each town's monthly median
// review days aligned to a shared month axis. Gaps are null.
func (s *webServer) getSeries(c *gin.Context) {
	metric := c.Query("metric")
	if !contains(validMetrics, metric) {
		metric = "overall"
	}
	reports, err := s.builder.All(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	rows := buildRanking(reports, metric)
	months := sortDates(reviewMonths(rows))

	resp := seriesResponse{Title: metricLabel(metric), Dates: months, Series: make([]seriesData, 0, len(rows))}
	for _, r := range rows {
		resp.Series = append(resp.Series, seriesData{
			Name:   r.name,
			Slug:   r.slug,
			Value:  nullable(r.value),
			Grade:  r.grade,
			Values: nullables(alignValues(r.points, months)),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func nullables(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		out[i] = nullable(v)
	}
	return out
}

func (s *webServer) listTowns(c *gin.Context) {
	towns, err := s.builder.Towns(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"towns": towns, "count": len(towns)})
}

func (s *webServer) getTown(c *gin.Context) {
	r, err := s.builder.Town(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *webServer) listScores(c *gin.Context) {
	reports, err := s.builder.All(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"towns": reports, "count": len(reports)})
}

func (s *webServer) getStatewide(c *gin.Context) {
	sw, err := s.builder.Statewide(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sw)
}

func attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
}

func (s *webServer) exportTownsCSV(c *gin.Context) {
	towns, err := s.builder.Towns(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, "adu-towns.csv", "text/csv; charset=utf-8")
	if err := export.WriteTownsCSV(c.Writer, towns); err != nil {
		s.log.Error("Write towns CSV", logger.Error(err))
	}
}

func (s *webServer) exportTownsXLSX(c *gin.Context) {
	towns, err := s.builder.Towns(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, "adu-towns.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteTownsXLSX(c.Writer, towns); err != nil {
		s.log.Error("Write towns XLSX", logger.Error(err))
	}
}

func (s *webServer) exportPermits(c *gin.Context) {
	slug := c.Param("slug")
	permits, err := s.builder.Permits(c.Request.Context(), slug)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, slug+"-permits.csv", "text/csv; charset=utf-8")
	if err := export.WritePermitsCSV(c.Writer, permits); err != nil {
		s.log.Error("Write permits CSV", logger.String("town", slug), logger.Error(err))
	}
}

// session returns the caller's session id, issuing a new cookie when the
// request has none.
func (s *webServer) session(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.sessionTTL/time.Second), "/", "", false, true)
	return id
}

func (s *webServer) getSelection(c *gin.Context) {
	slug, err := s.selection.Get(c.Request.Context(), s.session(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionRequest{Slug: slug})
}

// putSelection stores the selected town. An empty slug clears it; an unknown
// slug is rejected with 404.
func (s *webServer) putSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if req.Slug != "" {
		if _, err := s.builder.Find(ctx, req.Slug); err != nil {
			s.fail(c, err)
			return
		}
	}
	if err := s.selection.Set(ctx, s.session(c), req.Slug); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
