package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// sampleVideo extracts still frames from a video sticker container at
// deterministic timestamp offsets and decodes each into a frame, upscaled by
// the configured factor.
func (n *Normalizer) sampleVideo(ctx context.Context, item MediaItem, videoPath, workDir string) ([]Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.RenderTimeout)
	defer cancel()

	duration := item.Duration
	if duration <= 0 {
		d, err := n.probeDuration(ctx, videoPath)
		if err != nil {
			return nil, err
		}
		duration = d
	}

	offsets := SampleOffsets(duration, n.cfg.MaxVideoFrames)
	var frames []Frame
	for i, off := range offsets {
		outPath := filepath.Join(workDir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := n.extractFrame(ctx, videoPath, off, outPath); err != nil {
			// one bad offset does not sink the clip
			n.logger.Warn("video frame extraction failed", "source", item.SourceID, "offset", off, "err", err)
			continue
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			continue
		}
		frame, err := n.decodeStill(data, item.SourceID, len(frames), off)
		if err != nil {
			n.logger.Warn("sampled frame decode failed", "source", item.SourceID, "offset", off, "err", err)
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from video (duration=%.2fs)", duration)
	}
	return frames, nil
}

// SampleOffsets returns the timestamp offsets (seconds) to sample from a
// clip of the given duration.
//
// Always includes a near-start sample at +0.1s (leading frames are often
// black or blank). Clips over a second add a midpoint; clips over three
// seconds add thirds and a near-end sample at duration-0.5s (trailing frames
// are often blank too). Longer clips get more samples, bounded by max.
func SampleOffsets(duration float64, max int) []float64 {
	if max <= 0 {
		max = 6
	}
	offsets := []float64{0.1}
	if duration > 1 {
		offsets = append(offsets, duration/2)
	}
	if duration > 3 {
		offsets = append(offsets, duration/3, 2*duration/3, duration-0.5)
	}

	sort.Float64s(offsets)
	out := offsets[:0]
	var last float64 = -1
	for _, off := range offsets {
		if off <= 0 || (duration > 0 && off >= duration) {
			continue
		}
		// drop near-duplicate offsets
		if last >= 0 && off-last < 0.2 {
			continue
		}
		out = append(out, off)
		last = off
	}
	if len(out) == 0 {
		out = append(out, 0.1)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func (n *Normalizer) probeDuration(ctx context.Context, path string) (float64, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, n.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration: %w", err)
	}
	return d, nil
}

func (n *Normalizer) extractFrame(ctx context.Context, videoPath string, offset float64, outPath string) error {
	args := []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", offset),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
	}
	if n.cfg.VideoUpscale > 1 {
		args = append(args, "-vf", fmt.Sprintf("scale=iw*%d:ih*%d", n.cfg.VideoUpscale, n.cfg.VideoUpscale))
	}
	args = append(args, "-y", outPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, n.cfg.FFmpegPath, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
