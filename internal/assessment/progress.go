package assessment

// Band is the color class of the progress indicator.
type Band string

const (
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)

// Bands holds the percentage breakpoints: below Low is low, below Mid is mid.
type Bands struct {
	Low int
	Mid int
}

// DefaultBands matches the assessment page: red under 50%, amber under 80%.
var DefaultBands = Bands{Low: 50, Mid: 80}

// Classify maps a percentage to its band.
func (b Bands) Classify(percent int) Band {
	switch {
	case percent < b.Low:
		return BandLow
	case percent < b.Mid:
		return BandMid
	default:
		return BandHigh
	}
}
