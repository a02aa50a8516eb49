package strength

// Indicator is the compact three-level label shown next to a login form.
type Indicator uint8

const (
	// IndicatorWeak is shown for scores below 50.
	IndicatorWeak Indicator = iota
	// IndicatorMedium is shown for scores 50-79.
	IndicatorMedium
	// IndicatorStrong is shown for scores 80 and above.
	IndicatorStrong
)

const indicatorStrongFloor = 80

// String returns the indicator label.
func (i Indicator) String() string {
	switch i {
	case IndicatorWeak:
		return "weak"
	case IndicatorMedium:
		return "medium"
	case IndicatorStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// IndicatorFor derives the three-level indicator from the canonical band
// plus the score. Very-weak and weak collapse into IndicatorWeak and
// very-strong into IndicatorStrong; the strong band splits at 80 so the
// compact label keeps its historical 50/80 cut points.
func IndicatorFor(r Result) Indicator {
	switch r.Band {
	case VeryWeak, Weak:
		return IndicatorWeak
	case Medium:
		return IndicatorMedium
	case Strong:
		if r.Score >= indicatorStrongFloor {
			return IndicatorStrong
		}
		return IndicatorMedium
	default:
		return IndicatorStrong
	}
}
