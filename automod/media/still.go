package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// decodeStill decodes raw image bytes (jpeg, png, gif, webp) into a frame,
// upscaling below-floor sources and converting to RGB via JPEG re-encode.
func (n *Normalizer) decodeStill(data []byte, sourceID string, index int, offset float64) (Frame, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("decoding still image: %w", err)
	}

	scaled := n.upscaleToFloor(img)
	if scaled != img {
		b := scaled.Bounds()
		n.logger.Debug("upscaled small source", "source", sourceID, "format", format, "width", b.Dx(), "height", b.Dy())
	}

	enc, err := encodeJPEG(scaled)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Img:           scaled,
		Data:          enc,
		SourceID:      sourceID,
		Index:         index,
		OffsetSeconds: offset,
	}, nil
}

// upscaleToFloor enforces the dimension floor: a source smaller than the
// floor in either dimension is scaled up (aspect preserved) until both
// dimensions meet it. Larger sources pass through untouched.
func (n *Normalizer) upscaleToFloor(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= n.cfg.FloorWidth && h >= n.cfg.FloorHeight {
		return img
	}
	if w == 0 || h == 0 {
		return img
	}

	scale := float64(n.cfg.FloorWidth) / float64(w)
	if s := float64(n.cfg.FloorHeight) / float64(h); s > scale {
		scale = s
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < n.cfg.FloorWidth {
		nw = n.cfg.FloorWidth
	}
	if nh < n.cfg.FloorHeight {
		nh = n.cfg.FloorHeight
	}

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}
