package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// renderAnimation converts an animated sticker (gzipped lottie JSON) into
// raster frames via the external renderer, then treats each raster as a
// photo. The renderer is a collaborator: animation file in, PNG frames out.
func (n *Normalizer) renderAnimation(ctx context.Context, item MediaItem, data []byte, workDir string) ([]Frame, error) {
	if n.cfg.RendererPath == "" {
		return nil, fmt.Errorf("no animation renderer configured")
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.RenderTimeout)
	defer cancel()

	jsonData, err := gunzipAnimation(data)
	if err != nil {
		return nil, err
	}
	jsonPath := filepath.Join(workDir, "sticker.json")
	if err := os.WriteFile(jsonPath, jsonData, 0600); err != nil {
		return nil, err
	}

	frameDir := filepath.Join(workDir, "frames")
	if err := os.Mkdir(frameDir, 0700); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, n.cfg.RendererPath, jsonPath, filepath.Join(frameDir, "frame_%03d.png"))
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("animation render failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	entries, err := os.ReadDir(frameDir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			paths = append(paths, filepath.Join(frameDir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("animation renderer produced no frames")
	}

	var frames []Frame
	for i, p := range selectKeyFrames(paths) {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		frame, err := n.decodeStill(raw, item.SourceID, i, 0)
		if err != nil {
			n.logger.Warn("rendered frame decode failed", "source", item.SourceID, "path", p, "err", err)
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no rendered frames decoded")
	}
	return frames, nil
}

// selectKeyFrames keeps first, middle, and last when the renderer produced
// more than three frames.
func selectKeyFrames(paths []string) []string {
	if len(paths) <= 3 {
		return paths
	}
	return []string{paths[0], paths[len(paths)/2], paths[len(paths)-1]}
}

// gunzipAnimation decompresses a gzipped animation file (the on-the-wire
// sticker format). Already-uncompressed JSON passes through.
func gunzipAnimation(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzipped animation: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing animation: %w", err)
	}
	return out, nil
}
