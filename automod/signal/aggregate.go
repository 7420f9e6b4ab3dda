package signal

// Aggregate merges per-frame detection sets into one SignalRecord.
//
// A nil DetectionSet entry means detection failed for that frame; an empty
// (non-nil) set means the classifier confidently found nothing. If every
// entry is nil, or there are no frames at all, the record is marked degraded.
//
// Per category, the score is the max confidence over all (frame, label)
// pairs whose label matches the category's patterns, with confidences below
// minConfidence dropped entirely as noise. Labels merge into a global map
// with the same keep-maximum rule.
//
// Pure function: same inputs always yield the same record.
func Aggregate(rules *RuleSet, sets []DetectionSet, sourceKind string, minConfidence float64) SignalRecord {
	rec := SignalRecord{
		Categories: make(map[string]float64),
		Labels:     make(map[string]float64),
		SourceKind: sourceKind,
	}

	usable := 0
	for _, ds := range sets {
		if ds == nil {
			continue
		}
		usable++
		for label, conf := range ds {
			if conf < minConfidence {
				continue
			}
			norm := NormalizeLabel(label)
			if prev, ok := rec.Labels[norm]; !ok || conf > prev {
				rec.Labels[norm] = conf
			}
			for _, cat := range rules.MatchCategories(label) {
				if prev, ok := rec.Categories[cat]; !ok || conf > prev {
					rec.Categories[cat] = conf
				}
			}
		}
	}

	rec.FrameCount = usable
	rec.Degraded = usable == 0
	return rec
}
