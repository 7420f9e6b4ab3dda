package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config tunes the normalizer. Zero values are replaced by defaults in
// NewNormalizer so the normalizer is usable with no configuration.
type Config struct {
	// Dimension floor: sources below it are upscaled, never left smaller.
	// Classifiers lose accuracy on tiny inputs.
	FloorWidth  int
	FloorHeight int

	// AcquireTimeout bounds the media download; RenderTimeout bounds
	// external ffmpeg/ffprobe/animation-renderer work.
	AcquireTimeout time.Duration
	RenderTimeout  time.Duration

	FFmpegPath  string
	FFprobePath string
	// RendererPath is the external animation-to-raster tool (lottie
	// renderer). Empty disables animated sticker support.
	RendererPath string

	// VideoUpscale multiplies sampled video frame dimensions, to help the
	// detector pick up fine detail in small clips.
	VideoUpscale   int
	MaxVideoFrames int

	// ZoomFactor is the center-crop zoom used by the zoom enhancement.
	ZoomFactor float64

	// Enhancements lists the per-frame variants generated in addition to
	// the plain frame.
	Enhancements []Enhancement
}

func (c Config) withDefaults() Config {
	if c.FloorWidth == 0 {
		c.FloorWidth = 200
	}
	if c.FloorHeight == 0 {
		c.FloorHeight = 200
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 15 * time.Second
	}
	if c.RenderTimeout == 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.VideoUpscale == 0 {
		c.VideoUpscale = 2
	}
	if c.MaxVideoFrames == 0 {
		c.MaxVideoFrames = 6
	}
	if c.ZoomFactor == 0 {
		c.ZoomFactor = 2.0
	}
	return c
}

type Normalizer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewNormalizer(cfg Config, client *http.Client, logger *slog.Logger) *Normalizer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		cfg:    cfg.withDefaults(),
		client: client,
		logger: logger.With("subsystem", "media"),
	}
}

// Normalize converts one media item into classifiable frames.
//
// Any download, probe, or decode failure degrades to an empty frame slice
// with a non-nil error describing why; callers treat that as "no opinion",
// never as fatal. All intermediate artifacts (downloaded containers,
// rendered rasters) live in a per-call temp dir removed on every exit path,
// including timeout. Each call re-fetches and re-decodes from scratch.
func (n *Normalizer) Normalize(ctx context.Context, item MediaItem) ([]Frame, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, n.cfg.AcquireTimeout+n.cfg.RenderTimeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "shiro-media-*")
	if err != nil {
		normalizeFailures.WithLabelValues(string(item.Kind), "tempdir").Inc()
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	frames, err := n.normalizeInDir(ctx, item, workDir)
	normalizeDuration.WithLabelValues(string(item.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		n.logger.Warn("media normalization degraded", "kind", item.Kind, "source", item.SourceID, "err", err)
		return nil, err
	}
	n.logger.Debug("media normalized", "kind", item.Kind, "source", item.SourceID, "frames", len(frames))
	return frames, nil
}

func (n *Normalizer) normalizeInDir(ctx context.Context, item MediaItem, workDir string) ([]Frame, error) {
	switch item.Kind {
	case KindPhoto, KindStaticSticker:
		data, err := n.acquire(ctx, item)
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "acquire").Inc()
			return nil, err
		}
		frame, err := n.decodeStill(data, item.SourceID, 0, 0)
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "decode").Inc()
			return nil, err
		}
		return n.withEnhancements([]Frame{frame}), nil

	case KindVideoSticker:
		path, err := n.acquireToFile(ctx, item, workDir, "clip.webm")
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "acquire").Inc()
			return nil, err
		}
		frames, err := n.sampleVideo(ctx, item, path, workDir)
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "sample").Inc()
			return nil, err
		}
		return n.withEnhancements(frames), nil

	case KindAnimatedSticker:
		data, err := n.acquire(ctx, item)
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "acquire").Inc()
			return nil, err
		}
		frames, err := n.renderAnimation(ctx, item, data, workDir)
		if err != nil {
			normalizeFailures.WithLabelValues(string(item.Kind), "render").Inc()
			return nil, err
		}
		return n.withEnhancements(frames), nil

	default:
		return nil, fmt.Errorf("unsupported media kind: %q", item.Kind)
	}
}

// acquire fetches the raw media bytes, preferring inline data over a ref.
func (n *Normalizer) acquire(ctx context.Context, item MediaItem) ([]byte, error) {
	if len(item.Data) > 0 {
		return item.Data, nil
	}
	if item.Ref == "" {
		return nil, fmt.Errorf("media item has neither data nor ref")
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.AcquireTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download failed statusCode=%d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (n *Normalizer) acquireToFile(ctx context.Context, item MediaItem, workDir, name string) (string, error) {
	data, err := n.acquire(ctx, item)
	if err != nil {
		return "", err
	}
	path := workDir + "/" + name
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing media to work dir: %w", err)
	}
	return path, nil
}

// withEnhancements appends configured enhancement variants of each base
// frame. Each variant is computed on a fresh working copy, so no variant can
// corrupt the buffer another reads from.
func (n *Normalizer) withEnhancements(base []Frame) []Frame {
	if len(n.cfg.Enhancements) == 0 {
		return base
	}
	out := base
	for _, f := range base {
		for _, e := range n.cfg.Enhancements {
			img := Enhance(f.Img, e, n.cfg.ZoomFactor)
			if img == nil {
				continue
			}
			data, err := encodeJPEG(img)
			if err != nil {
				continue
			}
			v := f
			v.Img = img
			v.Data = data
			v.Enhancement = e
			out = append(out, v)
		}
	}
	return out
}
