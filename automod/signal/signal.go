// Package signal merges per-frame classifier output into a single
// content-signal record for policy evaluation.
package signal

// Well-known category names. The set is open: category rules loaded from
// config may introduce additional names, and the policy engine treats any
// absent category as score zero.
const (
	CategoryExplicit      = "explicit"
	CategoryPartialNudity = "partial_nudity"
	CategoryChildAbuse    = "child_abuse"
	CategoryViolence      = "violence"
	CategoryDrugs         = "drugs"
	CategorySkinRatio     = "skin_ratio"
)

// Source kinds, carried as provenance so policy can weight stickers
// differently from regular photos without sniffing file paths.
const (
	SourceKindPhoto           = "photo"
	SourceKindStaticSticker   = "sticker_static"
	SourceKindVideoSticker    = "sticker_video"
	SourceKindAnimatedSticker = "sticker_animated"
)

// DetectionSet is the raw classifier output for one frame: label to
// confidence in [0,1]. Duplicate detections for a label keep the maximum.
type DetectionSet map[string]float64

// NewDetectionSet folds a list of (label, confidence) pairs into a set,
// keeping the max confidence per label.
func NewDetectionSet(labels []string, confidences []float64) DetectionSet {
	ds := make(DetectionSet, len(labels))
	for i, l := range labels {
		if i >= len(confidences) {
			break
		}
		ds.Add(l, confidences[i])
	}
	return ds
}

func (ds DetectionSet) Add(label string, confidence float64) {
	if prev, ok := ds[label]; !ok || confidence > prev {
		ds[label] = confidence
	}
}

// SignalRecord is the aggregated content signal for one media item.
// Immutable after aggregation; consumed once by the policy engine.
type SignalRecord struct {
	// Categories maps category name to the max matching confidence across
	// all frames, with sub-floor confidences dropped as noise.
	Categories map[string]float64 `json:"categories"`

	// Labels is the merged label set across all frames (keep-maximum).
	Labels map[string]float64 `json:"labels"`

	FrameCount int    `json:"frameCount"`
	SourceKind string `json:"sourceKind,omitempty"`

	// Degraded is set when every frame failed to produce detections (or no
	// frames were extracted at all). A degraded record carries no positive
	// evidence and must never trigger deletion.
	Degraded bool `json:"degraded"`
}

// Score returns the category score, with absent categories read as zero.
func (sr *SignalRecord) Score(category string) float64 {
	return sr.Categories[category]
}
