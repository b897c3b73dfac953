package ocr

// ScorePolicy aggregates per-word recognition confidences (each 0..1) into a
// single document score. The engine does not prescribe an aggregation
// formula, so the policy is injectable.
type ScorePolicy interface {
	Score(wordConfidences []float64) float64
}

// MeanScore is the default policy: the arithmetic mean of word confidences,
// 0 when no words were recognized.
type MeanScore struct{}

func (MeanScore) Score(confs []float64) float64 {
	if len(confs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range confs {
		sum += c
	}
	mean := sum / float64(len(confs))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
