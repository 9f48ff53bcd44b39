package waste

// Filter returns the subsequence of detections with confidence at or above
// threshold, preserving relative order. An empty result means no detection
// this cycle; it is not an error.
func Filter(detections []Detection, threshold float64) []Detection {
	if len(detections) == 0 {
		return nil
	}
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= threshold {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// SelectBest picks the maximum-confidence detection. Ties break toward the
// earliest position in the sequence, so the choice is deterministic. The
// second return is false when the input is empty.
func SelectBest(detections []Detection) (Detection, bool) {
	if len(detections) == 0 {
		return Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}
