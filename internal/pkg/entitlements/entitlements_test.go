package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in     string
		want   Plan
		wantOK bool
	}{
		{in: "Free", want: PlanFree, wantOK: true},
		{in: "starter", want: PlanStarter, wantOK: true},
		{in: " PRO ", want: PlanPro, wantOK: true},
		{in: "premium", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParsePlan(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizePlanFallsBackToFree(t *testing.T) {
	assert.Equal(t, PlanFree, NormalizePlan("enterprise"))
	assert.Equal(t, PlanStarter, NormalizePlan("Starter"))
}

func TestMaxLeadsPerMonth(t *testing.T) {
	assert.Equal(t, int64(50), MaxLeadsPerMonth(PlanFree))
	assert.Equal(t, int64(600), MaxLeadsPerMonth(PlanStarter))
	assert.Equal(t, UnlimitedLeads, MaxLeadsPerMonth(PlanPro))
	assert.Equal(t, int64(50), MaxLeadsPerMonth(Plan("bogus")))
}

func TestIsUnlimited(t *testing.T) {
	assert.True(t, IsUnlimited(PlanPro))
	assert.False(t, IsUnlimited(PlanStarter))
	assert.False(t, IsUnlimited(PlanFree))
}
