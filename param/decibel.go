package param

import (
	"math"
)

// DBToAmp returns the raw amplitude for a decibel value.
func DBToAmp(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10.0, 0.05*db)
}

// AmpToDB returns the decibel value for a raw amplitude.
func AmpToDB(amp float64) float64 {
	if amp == 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amp)
}

// DBToAmpClamped returns the raw amplitude for a decibel value, mapping
// values at or below epsilon to silence.
func DBToAmpClamped(db, dbEpsilon float64) float64 {
	if math.IsInf(db, -1) || db <= dbEpsilon {
		return 0
	}
	return DBToAmp(db)
}

// AmpToDBClamped returns the decibel value for a raw amplitude, mapping
// amplitudes at or below epsilon to negative infinity.
func AmpToDBClamped(amp, ampEpsilon float64) float64 {
	if amp <= ampEpsilon {
		return math.Inf(-1)
	}
	return AmpToDB(amp)
}
