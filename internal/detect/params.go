package detect

// Config controls region detection. Shape limits are absolute gates applied
// before scoring; Thresholds gate the normalized scores afterwards.
type Config struct {
	Thresholds Thresholds

	// Shape gates
	MinAspect         float64 // long/short side ratio
	MaxAspect         float64
	MinSolidity       float64
	MinAreaPixels     float64
	MinAreaFraction   float64 // of the analyzed image area
	MinLengthPixels   int     // extent along the bar-stacking direction
	MinLengthFraction float64

	// Score normalization
	IdealAspect  float64
	SolidityNorm float64
	AreaNorm     float64 // area fraction that scores 100
	GradientNorm float64 // mean absolute gradient that scores 100

	// Morphology
	BlurSize            int
	CloseLengthFraction float64
	CloseMinLength      int
	CloseThickFraction  float64
	CloseMinThick       int
	DilateSize          int

	// AxisRetry runs a vertical-gradient pass when the horizontal pass finds
	// nothing.
	AxisRetry bool
}

// DefaultThresholds returns the default score gates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinArea:     10,
		MinAspect:   70,
		MinSolidity: 50,
		MinGradient: 15,
	}
}

// DefaultConfig returns detection parameters tuned for 1-D symbols in
// 480p-1080p camera frames.
func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),

		MinAspect:         1.8,
		MaxAspect:         65,
		MinSolidity:       0.10,
		MinAreaPixels:     100,
		MinAreaFraction:   0.00022,
		MinLengthPixels:   30,
		MinLengthFraction: 0.055,

		IdealAspect:  8.5,
		SolidityNorm: 0.8,
		AreaNorm:     0.1,
		GradientNorm: 100,

		BlurSize:            5,
		CloseLengthFraction: 0.055,
		CloseMinLength:      21,
		CloseThickFraction:  0.010,
		CloseMinThick:       3,
		DilateSize:          3,

		AxisRetry: true,
	}
}

// WithThresholds returns a copy of the config with new score gates.
func (c Config) WithThresholds(t Thresholds) Config {
	c.Thresholds = t
	return c
}

// WithAxisRetry returns a copy of the config with the vertical retry toggled.
func (c Config) WithAxisRetry(enabled bool) Config {
	c.AxisRetry = enabled
	return c
}
