package pdgid

import "math"

// Class is the classification outcome for one declared particle
type Class int

const (
	// Unclassified: valid and consistent, but the declared spin is outside
	// scalar/fermion/vector so neither elementary bucket applies.
	Unclassified Class = iota
	SMElementary
	BSMValid
	Inconsistent
)

// String returns the string representation of the class
func (c Class) String() string {
	switch c {
	case SMElementary:
		return "SM_ELEMENTARY"
	case BSMValid:
		return "BSM_VALID"
	case Inconsistent:
		return "INCONSISTENT"
	default:
		return "UNCLASSIFIED"
	}
}

// Classify places a declared particle into one of the classification buckets.
// spin is the UFO 2S+1 code and charge the declared electric charge.
func Classify(id int, spin int, charge float64) Class {
	if !IsValid(id) {
		return Inconsistent
	}

	if math.IsNaN(charge) || math.IsInf(charge, 0) {
		return Inconsistent
	}
	encodedCharge, ok := ThreeCharge(id)
	if !ok || float64(encodedCharge) != math.RoundToEven(charge*3) {
		return Inconsistent
	}

	encodedSpin, ok := JSpin(id)
	if ok && encodedSpin != spin {
		return Inconsistent
	}
	if !ok && spin != SpinScalar {
		return Inconsistent
	}

	if spin != SpinScalar && spin != SpinFermion && spin != SpinVector {
		return Unclassified
	}
	if IsSMElementary(id) {
		return SMElementary
	}
	return BSMValid
}
