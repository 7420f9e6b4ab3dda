package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samurais-network/shiro/automod"
	"github.com/samurais-network/shiro/automod/detector"
	"github.com/samurais-network/shiro/automod/media"
	"github.com/samurais-network/shiro/automod/policy"
	"github.com/samurais-network/shiro/automod/signal"
	"github.com/samurais-network/shiro/automod/verdictstore"
	"github.com/samurais-network/shiro/util"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	logger *slog.Logger
	engine *automod.Engine
}

type Config struct {
	Logger *slog.Logger
	Policy policy.Config

	DetectorHost      string
	DetectorToken     string
	DetectorRateLimit int
	DetectorPoolSize  int

	RedisURL   string
	VerdictDB  string
	VerdictTTL time.Duration

	CategoryRulesJSON string

	FFmpegPath     string
	FFprobePath    string
	RendererPath   string
	DimensionFloor int
	Enhancements   []string
	SkinHeuristic  bool

	AcquireTimeout time.Duration
	RenderTimeout  time.Duration
	DetectTimeout  time.Duration
}

// noopDetector reports no detections, leaving the skin-ratio heuristic as
// the only signal. Used when no inference service is configured.
type noopDetector struct{}

func (noopDetector) Detect(ctx context.Context, img []byte) ([]detector.Detection, error) {
	return nil, nil
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	rules := signal.DefaultRules()
	if config.CategoryRulesJSON != "" {
		loaded, err := signal.LoadRulesJSON(config.CategoryRulesJSON)
		if err != nil {
			return nil, fmt.Errorf("loading category rules: %w", err)
		}
		rules = loaded
		logger.Info("loaded category rules from JSON", "path", config.CategoryRulesJSON, "categories", rules.Categories())
	}

	var det detector.Detector
	if config.DetectorHost != "" {
		det = detector.Pooled(
			detector.NewHTTPDetector(config.DetectorHost, config.DetectorToken, config.DetectorRateLimit),
			config.DetectorPoolSize,
		)
	} else {
		logger.Warn("no inference service configured, relying on skin-ratio heuristic only")
		det = noopDetector{}
	}

	var verdicts verdictstore.Store
	switch {
	case config.RedisURL != "":
		s, err := verdictstore.NewRedisStore(config.RedisURL, config.VerdictTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis verdict store: %w", err)
		}
		verdicts = s
		logger.Info("using redis verdict store")
	case config.VerdictDB != "":
		s, err := verdictstore.NewSqliteStore(config.VerdictDB)
		if err != nil {
			return nil, fmt.Errorf("initializing sqlite verdict store: %w", err)
		}
		verdicts = s
		logger.Info("using sqlite verdict store", "path", config.VerdictDB)
	default:
		verdicts = verdictstore.NewMemStore(50_000, config.VerdictTTL)
	}

	var enhancements []media.Enhancement
	for _, e := range config.Enhancements {
		enhancements = append(enhancements, media.Enhancement(e))
	}

	normalizer := media.NewNormalizer(media.Config{
		FloorWidth:     config.DimensionFloor,
		FloorHeight:    config.DimensionFloor,
		AcquireTimeout: config.AcquireTimeout,
		RenderTimeout:  config.RenderTimeout,
		FFmpegPath:     config.FFmpegPath,
		FFprobePath:    config.FFprobePath,
		RendererPath:   config.RendererPath,
		Enhancements:   enhancements,
	}, util.RobustHTTPClient(), logger)

	engine := &automod.Engine{
		Logger:        logger,
		Normalizer:    normalizer,
		Detector:      det,
		Rules:         rules,
		Policy:        config.Policy,
		Verdicts:      verdicts,
		DetectTimeout: config.DetectTimeout,
		SkinHeuristic: config.SkinHeuristic,
	}

	return &Server{
		logger: logger,
		engine: engine,
	}, nil
}

// RunAPI serves the scan API until the listener fails or ctx is done.
func (s *Server) RunAPI(ctx context.Context, bind string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))

	e.POST("/scan", s.handleScan)
	e.POST("/flag/:uniqueID", s.handleFlag)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.logger.Info("starting scan API", "bind", bind)
	return e.Start(bind)
}

// handleScan accepts a media item description (JSON) or a direct multipart
// upload and returns the decision plus the signal record behind it.
func (s *Server) handleScan(c echo.Context) error {
	var item media.MediaItem

	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "missing file part")
		}
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
		}
		item = media.MediaItem{
			Kind:     media.Kind(c.FormValue("kind")),
			SourceID: c.FormValue("sourceId"),
			UniqueID: c.FormValue("uniqueId"),
			Data:     data,
		}
	} else {
		if err := c.Bind(&item); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid media item")
		}
	}

	if item.Kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "media kind is required")
	}

	out, err := s.engine.ProcessMedia(c.Request().Context(), item)
	if err != nil {
		// degraded runs still produce a usable keep outcome
		s.logger.Warn("scan degraded", "source", item.SourceID, "err", err)
	}
	return c.JSON(http.StatusOK, out)
}

// handleFlag records a reviewer decision that a source is prohibited.
func (s *Server) handleFlag(c echo.Context) error {
	uniqueID := c.Param("uniqueID")
	if uniqueID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uniqueID is required")
	}
	if err := s.engine.Flag(c.Request().Context(), uniqueID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to flag source")
	}
	s.logger.Info("source flagged by reviewer", "uniqueID", uniqueID)
	return c.NoContent(http.StatusNoContent)
}

// RunMetrics serves prometheus metrics on a separate listener.
func (s *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}
