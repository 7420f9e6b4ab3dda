package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/samurais-network/shiro/automod/policy"
	"github.com/samurais-network/shiro/automod/signal"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "shiro",
		Usage:   "chat media auto-moderation daemon (keeps the group comfy)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "detector-host",
			Usage:   "base URL of the content-classifier inference service",
			EnvVars: []string{"SHIRO_DETECTOR_HOST"},
		},
		&cli.StringFlag{
			Name:    "detector-token",
			Usage:   "bearer token for the inference service",
			EnvVars: []string{"SHIRO_DETECTOR_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "detector-rate-limit",
			Usage:   "max classification requests per second to the inference service",
			Value:   20,
			EnvVars: []string{"SHIRO_DETECTOR_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "detector-pool-size",
			Usage:   "max in-flight classification calls",
			Value:   8,
			EnvVars: []string{"SHIRO_DETECTOR_POOL_SIZE"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the scan API",
			Value:   ":3999",
			EnvVars: []string{"SHIRO_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":3998",
			EnvVars: []string{"SHIRO_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for the verdict cache (optional)",
			EnvVars: []string{"SHIRO_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "verdict-db",
			Usage:   "sqlite path for persistent verdicts (optional, overrides in-memory)",
			EnvVars: []string{"SHIRO_VERDICT_DB"},
		},
		&cli.DurationFlag{
			Name:    "verdict-ttl",
			Value:   24 * time.Hour,
			EnvVars: []string{"SHIRO_VERDICT_TTL"},
		},
		&cli.StringFlag{
			Name:    "policy-profile",
			Usage:   "tuning profile: default, strict, or lenient",
			Value:   "default",
			EnvVars: []string{"SHIRO_POLICY_PROFILE"},
		},
		&cli.Float64Flag{
			Name:    "explicit-threshold",
			Value:   -1,
			Usage:   "override the explicit category threshold (-1 keeps the profile value)",
			EnvVars: []string{"SHIRO_EXPLICIT_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "partial-nudity-threshold",
			Value:   -1,
			EnvVars: []string{"SHIRO_PARTIAL_NUDITY_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "child-abuse-threshold",
			Value:   -1,
			EnvVars: []string{"SHIRO_CHILD_ABUSE_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "violence-threshold",
			Value:   -1,
			EnvVars: []string{"SHIRO_VIOLENCE_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "min-confidence",
			Value:   -1,
			Usage:   "noise floor for individual detections (-1 keeps the profile value)",
			EnvVars: []string{"SHIRO_MIN_CONFIDENCE"},
		},
		&cli.Float64Flag{
			Name:    "composite-cutoff",
			Value:   -1,
			EnvVars: []string{"SHIRO_COMPOSITE_CUTOFF"},
		},
		&cli.BoolFlag{
			Name:    "child-abuse-zero-tolerance",
			Value:   true,
			EnvVars: []string{"SHIRO_CHILD_ABUSE_ZERO_TOLERANCE"},
		},
		&cli.BoolFlag{
			Name:    "violence-zero-tolerance",
			Value:   true,
			EnvVars: []string{"SHIRO_VIOLENCE_ZERO_TOLERANCE"},
		},
		&cli.StringFlag{
			Name:    "category-rules-json",
			Usage:   "JSON file of category label patterns, replacing the built-ins",
			EnvVars: []string{"SHIRO_CATEGORY_RULES_JSON"},
		},
		&cli.StringFlag{
			Name:    "ffmpeg-path",
			Value:   "ffmpeg",
			EnvVars: []string{"SHIRO_FFMPEG_PATH"},
		},
		&cli.StringFlag{
			Name:    "ffprobe-path",
			Value:   "ffprobe",
			EnvVars: []string{"SHIRO_FFPROBE_PATH"},
		},
		&cli.StringFlag{
			Name:    "renderer-path",
			Usage:   "external animation renderer binary (animated stickers disabled when empty)",
			EnvVars: []string{"SHIRO_RENDERER_PATH"},
		},
		&cli.IntFlag{
			Name:    "dimension-floor",
			Usage:   "minimum frame edge in pixels; smaller sources are upscaled",
			Value:   200,
			EnvVars: []string{"SHIRO_DIMENSION_FLOOR"},
		},
		&cli.StringSliceFlag{
			Name:    "enhancements",
			Usage:   "per-frame enhancement variants: contrast, sharpen, saturate, zoom",
			Value:   cli.NewStringSlice("contrast", "zoom"),
			EnvVars: []string{"SHIRO_ENHANCEMENTS"},
		},
		&cli.BoolFlag{
			Name:    "skin-heuristic",
			Usage:   "enable the model-free skin-ratio signal",
			Value:   true,
			EnvVars: []string{"SHIRO_SKIN_HEURISTIC"},
		},
		&cli.DurationFlag{
			Name:    "acquire-timeout",
			Value:   15 * time.Second,
			EnvVars: []string{"SHIRO_ACQUIRE_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "render-timeout",
			Value:   30 * time.Second,
			EnvVars: []string{"SHIRO_RENDER_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "detect-timeout",
			Value:   20 * time.Second,
			EnvVars: []string{"SHIRO_DETECT_TIMEOUT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				return fmt.Errorf("failed to create trace exporter: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("shiro"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(configFromFlags(cctx, logger))
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.RunAPI(ctx, cctx.String("bind")); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

// configFromFlags folds the selected tuning profile and individual flag
// overrides into the immutable config snapshot for this process.
func configFromFlags(cctx *cli.Context, logger *slog.Logger) Config {
	pol := policy.Profile(cctx.String("policy-profile"))

	override := func(cat, flag string) {
		if v := cctx.Float64(flag); v >= 0 {
			pol.Thresholds[cat] = v
		}
	}
	override(signal.CategoryExplicit, "explicit-threshold")
	override(signal.CategoryPartialNudity, "partial-nudity-threshold")
	override(signal.CategoryChildAbuse, "child-abuse-threshold")
	override(signal.CategoryViolence, "violence-threshold")
	if v := cctx.Float64("min-confidence"); v >= 0 {
		pol.MinConfidence = v
	}
	if v := cctx.Float64("composite-cutoff"); v >= 0 {
		pol.CompositeCutoff = v
	}

	var zt []string
	if cctx.Bool("child-abuse-zero-tolerance") {
		zt = append(zt, signal.CategoryChildAbuse)
	}
	if cctx.Bool("violence-zero-tolerance") {
		zt = append(zt, signal.CategoryViolence)
	}
	pol.ZeroTolerance = zt

	return Config{
		Logger:            logger,
		Policy:            pol,
		DetectorHost:      cctx.String("detector-host"),
		DetectorToken:     cctx.String("detector-token"),
		DetectorRateLimit: cctx.Int("detector-rate-limit"),
		DetectorPoolSize:  cctx.Int("detector-pool-size"),
		RedisURL:          cctx.String("redis-url"),
		VerdictDB:         cctx.String("verdict-db"),
		VerdictTTL:        cctx.Duration("verdict-ttl"),
		CategoryRulesJSON: cctx.String("category-rules-json"),
		FFmpegPath:        cctx.String("ffmpeg-path"),
		FFprobePath:       cctx.String("ffprobe-path"),
		RendererPath:      cctx.String("renderer-path"),
		DimensionFloor:    cctx.Int("dimension-floor"),
		Enhancements:      cctx.StringSlice("enhancements"),
		SkinHeuristic:     cctx.Bool("skin-heuristic"),
		AcquireTimeout:    cctx.Duration("acquire-timeout"),
		RenderTimeout:     cctx.Duration("render-timeout"),
		DetectTimeout:     cctx.Duration("detect-timeout"),
	}
}
