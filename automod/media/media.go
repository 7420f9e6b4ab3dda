// Package media converts inbound chat media (photos and static, video, or
// animated stickers) into still frames suitable for classification.
package media

import (
	"image"
)

type Kind string

const (
	KindPhoto           Kind = "photo"
	KindStaticSticker   Kind = "sticker_static"
	KindVideoSticker    Kind = "sticker_video"
	KindAnimatedSticker Kind = "sticker_animated"
)

// MediaItem describes one inbound media attachment. Either Ref (a
// retrievable URL, typically a chat-platform file endpoint) or Data (inline
// bytes) must be set. The item is consumed by one Normalize call and
// discarded; nothing here outlives the pipeline run.
type MediaItem struct {
	Kind     Kind    `json:"kind"`
	SourceID string  `json:"sourceId"`
	UniqueID string  `json:"uniqueId,omitempty"`
	Ref      string  `json:"ref,omitempty"`
	Data     []byte  `json:"-"`
	MimeType string  `json:"mimeType,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Enhancement tags which per-frame transform produced a frame variant.
type Enhancement string

const (
	EnhanceNone     Enhancement = ""
	EnhanceContrast Enhancement = "contrast"
	EnhanceSharpen  Enhancement = "sharpen"
	EnhanceSaturate Enhancement = "saturate"
	EnhanceZoom     Enhancement = "zoom"
)

// Frame is one decoded still derived from a media source: the pixel buffer,
// a JPEG encoding of it (what gets shipped to the detector), and provenance.
// Frames are owned by the pipeline run that created them and are never
// shared across runs.
type Frame struct {
	Img  image.Image
	Data []byte

	SourceID      string
	Index         int
	OffsetSeconds float64
	Enhancement   Enhancement
}
