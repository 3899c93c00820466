// Package pdgid implements the PDG Monte Carlo particle numbering scheme
// predicates used to classify the particles declared by a model.
//
// An identifier is read as the digit string n nr nl nq1 nq2 nq3 nj (right to
// left: nj is the units digit), optionally prefixed by the nuclear digits
// n8..n10. Spins are 2J+1 codes, charges are three times the electric charge.
package pdgid

import "math"

type location int

const (
	locNj location = iota + 1
	locNq3
	locNq2
	locNq1
	locNl
	locNr
	locN
	locN8
	locN9
	locN10
)

// Spin codes as written in UFO particle declarations (2S+1, ghosts negative)
const (
	SpinGhost    = -1
	SpinScalar   = 1
	SpinFermion  = 2
	SpinVector   = 3
	SpinRarita   = 4
	SpinTensor   = 5
	noSpin       = 0
	maxFundament = 100
)

// quarkCharge holds three times the charge of quarks d, u, s, c, b, t
var quarkCharge = [7]int{0, -1, 2, -1, 2, -1, 2}

// fundamental describes a code in the 1-100 range that the scheme assigns
type fundamental struct {
	threeCharge int
	spin        int // noSpin when the scheme does not fix one
	hasCharge   bool
}

// fundamentals lists the assigned codes below 100. The fourth generation
// (7, 8, 17, 18) is left unassigned and therefore invalid.
var fundamentals = map[int]fundamental{
	1: {-1, SpinFermion, true}, 2: {2, SpinFermion, true},
	3: {-1, SpinFermion, true}, 4: {2, SpinFermion, true},
	5: {-1, SpinFermion, true}, 6: {2, SpinFermion, true},
	11: {-3, SpinFermion, true}, 12: {0, SpinFermion, true},
	13: {-3, SpinFermion, true}, 14: {0, SpinFermion, true},
	15: {-3, SpinFermion, true}, 16: {0, SpinFermion, true},
	21: {0, SpinVector, true}, 22: {0, SpinVector, true},
	23: {0, SpinVector, true}, 24: {3, SpinVector, true},
	25: {0, noSpin, true},
	32: {0, noSpin, true}, 33: {0, noSpin, true}, 34: {3, noSpin, true},
	35: {0, noSpin, true}, 36: {0, noSpin, true}, 37: {3, noSpin, true},
	39: {0, noSpin, true},
	41: {0, noSpin, true}, 42: {-1, noSpin, true},
}

func abspid(id int) int {
	if id < 0 {
		if id == math.MinInt {
			return math.MaxInt
		}
		return -id
	}
	return id
}

func digit(id int, loc location) int {
	a := abspid(id)
	for i := location(1); i < loc; i++ {
		a /= 10
	}
	return a % 10
}

func extraBits(id int) int {
	return abspid(id) / 10000000
}

func sign(id, v int) int {
	if id < 0 {
		return -v
	}
	return v
}

func isGeneratorSpecific(id int) bool {
	a := abspid(id)
	switch {
	case a >= 81 && a <= 100:
		return true
	case a >= 901 && a <= 930, a >= 1901 && a <= 1930, a >= 2901 && a <= 2930, a >= 3901 && a <= 3930:
		return true
	case a == 998 || a == 999:
		return true
	}
	return false
}

// partner returns the fundamental code a SUSY, excited, Kaluza-Klein or
// left-right partner code refers to, or 0 when id is no such code.
func partner(id int) (fid int, family int) {
	a := abspid(id)
	if a <= maxFundament || extraBits(id) > 0 {
		return 0, 0
	}
	if digit(id, locNq1) != 0 || digit(id, locNq2) != 0 || digit(id, locNl) != 0 {
		return 0, 0
	}
	fid = a % 100
	if _, ok := fundamentals[fid]; !ok {
		return 0, 0
	}

	n, nr := digit(id, locN), digit(id, locNr)
	switch {
	case (n == 1 || n == 2) && nr == 0:
		return fid, n
	case n == 4 && nr == 0:
		return fid, n
	case n == 5 || n == 6:
		return fid, n
	case n == 9 && nr == 9:
		return fid, n
	}
	return 0, 0
}

// exotic reports codes of the form 90000xx: new states outside the quark model
// that the scheme identifies only by their spin digit.
func exotic(id int) bool {
	a := abspid(id)
	if extraBits(id) > 0 || a < 9000000 {
		return false
	}
	if digit(id, locN) != 9 || digit(id, locNr) != 0 || digit(id, locNl) != 0 {
		return false
	}
	return digit(id, locNq1) == 0 && digit(id, locNq2) == 0 && a%100 != 0
}

func validQuark(q int) bool {
	return q >= 1 && q <= 6
}

// IsMeson reports whether id is a quark-antiquark state
func IsMeson(id int) bool {
	a := abspid(id)
	if a == 130 || a == 310 {
		return true
	}
	if a <= maxFundament || extraBits(id) > 0 {
		return false
	}
	n := digit(id, locN)
	if n != 0 && n != 9 {
		return false
	}
	q1, q2, q3, nj := digit(id, locNq1), digit(id, locNq2), digit(id, locNq3), digit(id, locNj)
	if q1 != 0 || !validQuark(q2) || !validQuark(q3) || nj == 0 {
		return false
	}
	if q2 < q3 {
		return false
	}
	// self-conjugate states have no antiparticle code
	if id < 0 && q2 == q3 {
		return false
	}
	return true
}

// IsBaryon reports whether id is a three-quark state
func IsBaryon(id int) bool {
	a := abspid(id)
	if a <= maxFundament || extraBits(id) > 0 || digit(id, locN) != 0 {
		return false
	}
	q1, q2, q3, nj := digit(id, locNq1), digit(id, locNq2), digit(id, locNq3), digit(id, locNj)
	if !validQuark(q1) || !validQuark(q2) || !validQuark(q3) || nj == 0 {
		return false
	}
	return q1 >= q2 && q1 >= q3
}

// IsDiquark reports whether id is a two-quark state
func IsDiquark(id int) bool {
	a := abspid(id)
	if a <= maxFundament || extraBits(id) > 0 {
		return false
	}
	if digit(id, locN) != 0 || digit(id, locNr) != 0 || digit(id, locNl) != 0 {
		return false
	}
	q1, q2, q3, nj := digit(id, locNq1), digit(id, locNq2), digit(id, locNq3), digit(id, locNj)
	return validQuark(q1) && validQuark(q2) && q3 == 0 && nj > 0 && q1 >= q2
}

// IsNucleus reports whether id is a nuclear code 10LZZZAAAI
func IsNucleus(id int) bool {
	a := abspid(id)
	if a < 1000000000 || a > 1999999999 {
		return false
	}
	if digit(id, locN10) != 1 || digit(id, locN9) != 0 {
		return false
	}
	z := (a / 10000) % 1000
	mass := (a / 10) % 1000
	return mass > 0 && mass >= z
}

// IsValid reports whether id conforms to the numbering scheme
func IsValid(id int) bool {
	if id == 0 {
		return false
	}
	if extraBits(id) > 0 {
		return IsNucleus(id)
	}
	if abspid(id) <= maxFundament {
		_, ok := fundamentals[abspid(id)]
		return ok || isGeneratorSpecific(id)
	}
	if fid, _ := partner(id); fid != 0 {
		return true
	}
	return exotic(id) || IsMeson(id) || IsBaryon(id) || IsDiquark(id) || isGeneratorSpecific(id)
}

// ThreeCharge returns three times the charge encoded by id. The boolean is
// false when id is invalid or the scheme does not fix a charge.
func ThreeCharge(id int) (int, bool) {
	if !IsValid(id) {
		return 0, false
	}
	a := abspid(id)

	switch {
	case IsNucleus(id):
		return sign(id, 3*((a/10000)%1000)), true
	case a <= maxFundament:
		f, ok := fundamentals[a]
		if !ok || !f.hasCharge {
			return 0, false
		}
		return sign(id, f.threeCharge), true
	}

	if a == 9900041 || a == 9900042 {
		return sign(id, 6), true
	}
	if fid, _ := partner(id); fid != 0 {
		return sign(id, fundamentals[fid].threeCharge), true
	}
	if exotic(id) {
		return 0, true
	}

	q1, q2, q3 := digit(id, locNq1), digit(id, locNq2), digit(id, locNq3)
	switch {
	case a == 130 || a == 310:
		return 0, true
	case IsMeson(id):
		if q2 == 3 || q2 == 5 {
			return sign(id, quarkCharge[q3]-quarkCharge[q2]), true
		}
		return sign(id, quarkCharge[q2]-quarkCharge[q3]), true
	case IsDiquark(id):
		return sign(id, quarkCharge[q1]+quarkCharge[q2]), true
	case IsBaryon(id):
		return sign(id, quarkCharge[q1]+quarkCharge[q2]+quarkCharge[q3]), true
	}
	return 0, false
}

// JSpin returns the 2J+1 spin code encoded by id. The boolean is false when
// id is invalid or the scheme leaves the spin undefined.
func JSpin(id int) (int, bool) {
	if !IsValid(id) {
		return 0, false
	}
	a := abspid(id)

	if IsNucleus(id) {
		return 0, false
	}
	if a <= maxFundament {
		f, ok := fundamentals[a]
		if !ok || f.spin == noSpin {
			return 0, false
		}
		return f.spin, true
	}

	if fid, family := partner(id); fid != 0 {
		return partnerSpin(fid, family)
	}

	nj := digit(id, locNj)
	if nj == 0 {
		return 0, false
	}
	return nj, true
}

// partnerSpin derives the spin of a partner state from its fundamental code
func partnerSpin(fid, family int) (int, bool) {
	fermion := fid <= 16
	switch family {
	case 1, 2:
		// superpartners differ by half a unit of spin
		if fermion {
			return SpinScalar, true
		}
		if fid == 39 {
			return SpinRarita, true
		}
		return SpinFermion, true
	case 9:
		if fid == 41 || fid == 42 {
			return SpinScalar, true
		}
	}
	f := fundamentals[fid]
	if f.spin == noSpin {
		return 0, false
	}
	return f.spin, true
}

// IsSMQuark reports whether id is one of the six Standard Model quarks
func IsSMQuark(id int) bool {
	a := abspid(id)
	return a >= 1 && a <= 6
}

// IsSMLepton reports whether id is one of the six Standard Model leptons
func IsSMLepton(id int) bool {
	a := abspid(id)
	return a >= 11 && a <= 16
}

// IsSMGaugeBosonOrHiggs reports whether id is the gluon, photon, Z, W or Higgs.
// Only the W carries a negative code.
func IsSMGaugeBosonOrHiggs(id int) bool {
	if abspid(id) == 24 {
		return true
	}
	return id >= 21 && id <= 25
}

// IsSMElementary reports whether id is in the Standard Model registry
func IsSMElementary(id int) bool {
	return IsSMQuark(id) || IsSMLepton(id) || IsSMGaugeBosonOrHiggs(id)
}
