package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormCDF(0), 1e-12)
	assert.InDelta(t, 0.975, NormCDF(1.959964), 1e-4)
	assert.InDelta(t, 0.025, NormCDF(-1.959964), 1e-4)
	assert.InDelta(t, 1.0, NormCDF(10), 1e-12)
}

func TestInvNormCDF(t *testing.T) {
	assert.InDelta(t, 0.0, InvNormCDF(0.5), 1e-12)
	assert.InDelta(t, 1.959964, InvNormCDF(0.975), 1e-4)
	assert.InDelta(t, -1.644854, InvNormCDF(0.05), 1e-4)

	// round trip
	for _, p := range []float64{0.01, 0.1, 0.3, 0.7, 0.9, 0.99} {
		assert.InDelta(t, p, NormCDF(InvNormCDF(p)), 1e-9)
	}
}

func TestStudentTPValue(t *testing.T) {
	assert.InDelta(t, 1.0, studentTPValueTwoSided(0, 10), 1e-12)
	// the classic 5% critical value at 20 degrees of freedom
	assert.InDelta(t, 0.05, studentTPValueTwoSided(2.086, 20), 5e-4)
	assert.Less(t, studentTPValueTwoSided(8, 20), 1e-6)
	// symmetric in t
	assert.InDelta(t,
		studentTPValueTwoSided(1.7, 15),
		studentTPValueTwoSided(-1.7, 15), 1e-12)
}

func TestStudentTApproachesNormal(t *testing.T) {
	// at high degrees of freedom the t distribution is close to normal
	pT := studentTPValueTwoSided(1.959964, 1e6)
	pN := 2 * (1 - NormCDF(1.959964))
	assert.InDelta(t, pN, pT, 1e-4)
}
