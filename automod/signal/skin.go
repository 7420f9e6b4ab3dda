package signal

import (
	"image"
)

// Skin-tone bounds in HSV. Hue in degrees; saturation/value in [0,1].
// Deliberately wide: this is a coarse cross-check, not a classifier.
const (
	skinHueMax = 40.0
	skinSatMin = 48.0 / 255.0
	skinValMin = 80.0 / 255.0
)

// SkinRatio returns the fraction of pixels falling in a skin-tone HSV range.
// A model-free heuristic used as a fallback signal when the external
// detector produces no confident labels, and as corroboration for
// borderline partial-nudity scores.
func SkinRatio(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	skin := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			h, s, v := rgbToHSV(float64(r)/65535.0, float64(g)/65535.0, float64(bl)/65535.0)
			if h <= skinHueMax && s >= skinSatMin && v >= skinValMin {
				skin++
			}
		}
	}
	return float64(skin) / float64(total)
}

// SkinScore maps a raw skin-pixel ratio onto a category score. Cutpoints
// follow the tuned heuristic: large skin coverage is treated as strong
// evidence, moderate coverage as weak evidence, anything else as near-noise.
func SkinScore(ratio float64) float64 {
	switch {
	case ratio > 0.4:
		return 0.95
	case ratio > 0.2:
		return 0.7
	default:
		return 0.1 * ratio / 0.2
	}
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}

	v = max
	d := max - min
	if max > 0 {
		s = d / max
	}
	if d == 0 {
		return 0, s, v
	}

	switch max {
	case r:
		h = 60 * ((g - b) / d)
		if h < 0 {
			h += 360
		}
	case g:
		h = 60*((b-r)/d) + 120
	default:
		h = 60*((r-g)/d) + 240
	}
	return h, s, v
}
