package pdgid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		id     int
		spin   int
		charge float64
		want   Class
	}{
		{"electron", 11, SpinFermion, -1, SMElementary},
		{"positron", -11, SpinFermion, 1, SMElementary},
		{"photon", 22, SpinVector, 0, SMElementary},
		{"W minus", -24, SpinVector, -1, SMElementary},
		{"top", 6, SpinFermion, 2.0 / 3.0, SMElementary},
		{"down", 1, SpinFermion, -1.0 / 3.0, SMElementary},
		{"higgs scalar with undefined encoded spin", 25, SpinScalar, 0, SMElementary},
		{"higgs declared as vector", 25, SpinVector, 0, Inconsistent},
		{"exotic scalar", 9000001, SpinScalar, 0, BSMValid},
		{"exotic with mismatched spin", 9000001, SpinFermion, 0, Inconsistent},
		{"exotic with charge", 9000001, SpinScalar, 1, Inconsistent},
		{"fourth generation quark", 7, SpinFermion, -1.0 / 3.0, Inconsistent},
		{"fourth generation quark any spin", 7, SpinScalar, 0, Inconsistent},
		{"neutralino", 1000022, SpinFermion, 0, BSMValid},
		{"chargino", 1000024, SpinFermion, 1, BSMValid},
		{"selectron", 1000011, SpinScalar, -1, BSMValid},
		{"right handed W", 9900024, SpinVector, 1, BSMValid},
		{"charged higgs", 37, SpinScalar, 1, BSMValid},
		{"graviton declared scalar", 39, SpinScalar, 0, BSMValid},
		{"gravitino", 1000039, 4, 0, Unclassified},
		{"zero", 0, SpinScalar, 0, Inconsistent},
		{"pion", 211, SpinScalar, 1, BSMValid},
		{"generator specific", 82, SpinScalar, 0, Inconsistent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.id, tt.spin, tt.charge))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	for _, id := range []int{11, 9000001, 7, -24, 2212} {
		first := Classify(id, SpinFermion, -1)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(id, SpinFermion, -1))
		}
	}
}

func TestClassify_Total(t *testing.T) {
	ids := []int{math.MinInt, math.MaxInt, -1, 1 << 40, 1000010020, 99999999, 10000000}
	for id := -3000; id <= 3000; id++ {
		ids = append(ids, id)
	}
	charges := []float64{0, -1, 2.0 / 3.0, math.NaN(), math.Inf(1)}

	for _, id := range ids {
		for _, charge := range charges {
			for _, spin := range []int{SpinGhost, SpinScalar, SpinFermion, SpinVector, SpinTensor} {
				assert.NotPanics(t, func() {
					c := Classify(id, spin, charge)
					assert.Contains(t, []Class{Unclassified, SMElementary, BSMValid, Inconsistent}, c)
				})
			}
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []int{1, -6, 11, 16, 21, 25, 37, 2212, -2212, 3122, 211, -211, 111, 130, 310,
		2101, 1000022, 2000011, 9900012, 9000001, 1000010020, 5100001}
	invalid := []int{0, 7, 8, 17, 18, 9, 26, 1000000, 99999999, -111, 9000000, 9000100}

	for _, id := range valid {
		assert.True(t, IsValid(id), "expected %d to be valid", id)
	}
	for _, id := range invalid {
		assert.False(t, IsValid(id), "expected %d to be invalid", id)
	}
}

func TestThreeCharge(t *testing.T) {
	tests := []struct {
		id   int
		want int
	}{
		{11, -3}, {-11, 3}, {2, 2}, {24, 3}, {-24, -3}, {22, 0},
		{211, 3}, {-211, -3}, {321, 3}, {311, 0}, {521, 3}, {411, 3},
		{2212, 3}, {2112, 0}, {3122, 0}, {2101, 1},
		{1000024, 3}, {1000010020, 3}, {9000001, 0}, {9900041, 6},
	}

	for _, tt := range tests {
		got, ok := ThreeCharge(tt.id)
		assert.True(t, ok, "expected a charge for %d", tt.id)
		assert.Equal(t, tt.want, got, "three charge of %d", tt.id)
	}

	_, ok := ThreeCharge(7)
	assert.False(t, ok)
	_, ok = ThreeCharge(90)
	assert.False(t, ok)
}

func TestJSpin(t *testing.T) {
	tests := []struct {
		id   int
		want int
		ok   bool
	}{
		{11, SpinFermion, true},
		{21, SpinVector, true},
		{25, 0, false},
		{35, 0, false},
		{213, 3, true},
		{2212, 2, true},
		{130, 0, false},
		{1000001, SpinScalar, true},
		{1000021, SpinFermion, true},
		{9000003, SpinVector, true},
		{7, 0, false},
	}

	for _, tt := range tests {
		got, ok := JSpin(tt.id)
		assert.Equal(t, tt.ok, ok, "spin defined for %d", tt.id)
		assert.Equal(t, tt.want, got, "spin of %d", tt.id)
	}
}

func TestSMRegistry(t *testing.T) {
	assert.True(t, IsSMQuark(-5))
	assert.False(t, IsSMQuark(7))
	assert.True(t, IsSMLepton(-16))
	assert.True(t, IsSMGaugeBosonOrHiggs(-24))
	assert.False(t, IsSMGaugeBosonOrHiggs(-23))
	assert.False(t, IsSMElementary(9000001))
}
