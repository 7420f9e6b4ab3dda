package media

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Enhance produces an enhanced working copy of img for the given variant.
// The input image is never written to, so variants can be derived from the
// same base frame in any order. Returns nil for unknown variants.
//
// These transforms exist because small subtle details (partial occlusion,
// small prohibited objects) sit below detector sensitivity in the plain
// frame.
func Enhance(img image.Image, e Enhancement, zoomFactor float64) *image.NRGBA {
	if img == nil {
		return nil
	}
	switch e {
	case EnhanceContrast:
		return stretchContrast(img)
	case EnhanceSharpen:
		return sharpen(img)
	case EnhanceSaturate:
		return saturate(img, 1.3)
	case EnhanceZoom:
		return centerZoom(img, zoomFactor)
	default:
		return nil
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		out := image.NewNRGBA(n.Bounds())
		copy(out.Pix, n.Pix)
		return out
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	xdraw.Draw(out, b, img, b.Min, xdraw.Src)
	return out
}

// stretchContrast linearly remaps luma so the 2nd..98th percentile range
// spans full scale. A cheap stand-in for local histogram equalization that
// behaves well on flat, low-contrast sticker art.
func stretchContrast(img image.Image) *image.NRGBA {
	out := toNRGBA(img)

	var hist [256]int
	total := 0
	for i := 0; i < len(out.Pix); i += 4 {
		l := luma(out.Pix[i], out.Pix[i+1], out.Pix[i+2])
		hist[l]++
		total++
	}
	if total == 0 {
		return out
	}

	lo, hi := percentileBounds(hist[:], total, 0.02, 0.98)
	if hi <= lo {
		return out
	}
	scale := 255.0 / float64(hi-lo)

	var lut [256]uint8
	for v := 0; v < 256; v++ {
		s := (float64(v) - float64(lo)) * scale
		lut[v] = clamp8(s)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = lut[out.Pix[i]]
		out.Pix[i+1] = lut[out.Pix[i+1]]
		out.Pix[i+2] = lut[out.Pix[i+2]]
	}
	return out
}

func percentileBounds(hist []int, total int, lo, hi float64) (int, int) {
	loCount := int(float64(total) * lo)
	hiCount := int(float64(total) * hi)
	loV, hiV := 0, 255
	acc := 0
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc >= loCount {
			loV = v
			break
		}
	}
	acc = 0
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc >= hiCount {
			hiV = v
			break
		}
	}
	return loV, hiV
}

// sharpen applies a standard 3x3 unsharp kernel (center 5, cross -1).
func sharpen(img image.Image) *image.NRGBA {
	src := toNRGBA(img)
	b := src.Bounds()
	out := image.NewNRGBA(b)
	copy(out.Pix, src.Pix)

	w, h := b.Dx(), b.Dy()
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for c := 0; c < 3; c++ {
				i := y*src.Stride + x*4 + c
				v := 5*int(src.Pix[i]) -
					int(src.Pix[i-4]) - int(src.Pix[i+4]) -
					int(src.Pix[i-src.Stride]) - int(src.Pix[i+src.Stride])
				out.Pix[i] = clamp8(float64(v))
			}
		}
	}
	return out
}

// saturate scales chroma around per-pixel luma by the given factor.
func saturate(img image.Image, factor float64) *image.NRGBA {
	out := toNRGBA(img)
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		l := float64(luma(r, g, b))
		out.Pix[i] = clamp8(l + (float64(r)-l)*factor)
		out.Pix[i+1] = clamp8(l + (float64(g)-l)*factor)
		out.Pix[i+2] = clamp8(l + (float64(b)-l)*factor)
	}
	return out
}

// centerZoom crops toward the image center by factor and rescales the crop
// back to the original dimensions.
func centerZoom(img image.Image, factor float64) *image.NRGBA {
	if factor <= 1 {
		return toNRGBA(img)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw := int(float64(w) / factor)
	ch := int(float64(h) / factor)
	if cw < 1 || ch < 1 {
		return toNRGBA(img)
	}
	x0 := b.Min.X + (w-cw)/2
	y0 := b.Min.Y + (h-ch)/2
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, crop, xdraw.Src, nil)
	return out
}

func luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
