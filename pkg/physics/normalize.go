package physics

// NormalizeParameterValue maps value from the parameter range
// [pMin, pMax] into the normalization range [nMin, nMax], pivoting the
// parameter's midpoint onto nDef. Each half of the parameter range scales
// independently onto its half of the normalization range. A half of zero
// length maps to 0.
//
// The result is negated unless inverted is set.
func NormalizeParameterValue(value, pMin, pMax, pDef, nMin, nMax, nDef float32, inverted bool) float32 {
	hi := max(pMax, pMin)
	lo := min(pMax, pMin)
	value = min(max(value, lo), hi)

	nLo := min(nMin, nMax)
	nHi := max(nMin, nMax)

	mid := lo + (hi-lo)/2
	delta := value - mid

	var result float32
	switch {
	case delta > 0:
		if length := hi - mid; length != 0 {
			result = delta*((nHi-nDef)/length) + nDef
		}
	case delta < 0:
		if length := lo - mid; length != 0 {
			result = delta*((nLo-nDef)/length) + nDef
		}
	default:
		result = nDef
	}

	if inverted {
		return result
	}
	return -result
}
