// Package detector is the boundary to the external content classifier:
// one still image in, a set of (label, confidence) detections out.
package detector

import (
	"context"
)

// Detection is one classifier hit. Labels are free-form strings from the
// classifier's own taxonomy; no ordering guarantee across a result set.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Detector classifies a single encoded still image. Implementations must be
// safe for concurrent use; expensive ones should be wrapped with Pooled so
// blocking model calls cannot stall the rest of the pipeline.
type Detector interface {
	Detect(ctx context.Context, img []byte) ([]Detection, error)
}
