package transcription

import "talknote-go/internal/encoding"

// BitrateFactors maps an encoding to roughly how many megabytes one minute of
// audio takes. The values are heuristics used only to pick a recognition mode.
type BitrateFactors map[encoding.Tag]float64

// DefaultBitrateFactor applies to encodings missing from the table.
const DefaultBitrateFactor = 1.5

func DefaultBitrateFactors() BitrateFactors {
	return BitrateFactors{
		encoding.Linear16: 10,
		encoding.MP3:      1,
		encoding.OggOpus:  0.8,
		encoding.WebmOpus: 0.8,
	}
}

func (f BitrateFactors) factor(tag encoding.Tag) float64 {
	if v, ok := f[tag]; ok && v > 0 {
		return v
	}
	return DefaultBitrateFactor
}

// EstimateMinutes returns the approximate duration of sizeMB of audio.
func (f BitrateFactors) EstimateMinutes(sizeMB float64, tag encoding.Tag) float64 {
	if sizeMB <= 0 {
		return 0
	}
	return sizeMB / f.factor(tag)
}

// MegaBytes converts a byte count to binary megabytes.
func MegaBytes(n int) float64 {
	return float64(n) / (1024 * 1024)
}

// SelectMode picks long-running recognition when either the size or the
// estimated duration is over its threshold.
func SelectMode(sizeMB, estimatedMinutes, sizeThresholdMB, durationThresholdMinutes float64) Mode {
	if sizeMB > sizeThresholdMB || estimatedMinutes > durationThresholdMinutes {
		return ModeLongRunning
	}
	return ModeSync
}
