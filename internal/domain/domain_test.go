package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractedData(t *testing.T) {
	t.Run("parses a complete payload", func(t *testing.T) {
		out, err := ParseExtractedData(map[string]any{
			"policy_number":   "POL-2201",
			"insurer":         "QBE",
			"policy_end_date": "2026-06-30",
			"coverage_amount": 20000000.0,
			"field_confidence": map[string]any{
				"policy_number": 0.98,
				"insurer":       0.91,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "POL-2201", out.PolicyNumber)
		assert.Equal(t, "QBE", out.Insurer)
		require.NotNil(t, out.PolicyEndDate)
		assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), *out.PolicyEndDate)
		require.NotNil(t, out.CoverageAmount)
		assert.Equal(t, 20000000.0, *out.CoverageAmount)
		assert.Equal(t, 0.98, out.FieldConfidence["policy_number"])
	})

	t.Run("accepts RFC3339 end dates", func(t *testing.T) {
		out, err := ParseExtractedData(map[string]any{"policy_end_date": "2026-06-30T00:00:00Z"})
		require.NoError(t, err)
		require.NotNil(t, out.PolicyEndDate)
	})

	t.Run("nil payload is empty, not an error", func(t *testing.T) {
		out, err := ParseExtractedData(nil)
		require.NoError(t, err)
		assert.Nil(t, out.PolicyEndDate)
		assert.Empty(t, out.PolicyNumber)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		_, err := ParseExtractedData(map[string]any{"surprise": true})
		require.NoError(t, err)
	})

	t.Run("malformed known keys fail loudly", func(t *testing.T) {
		_, err := ParseExtractedData(map[string]any{"policy_end_date": "soon"})
		assert.Error(t, err)

		_, err = ParseExtractedData(map[string]any{"coverage_amount": "lots"})
		assert.Error(t, err)

		_, err = ParseExtractedData(map[string]any{"policy_number": 12})
		assert.Error(t, err)
	})
}

func TestDay(t *testing.T) {
	// 23:30 in UTC+10 is already the next day's key in local time; the key is
	// always the UTC day so both sides of a send agree.
	local := time.Date(2026, 3, 11, 9, 30, 0, 0, time.FixedZone("AEST", 10*3600))
	assert.Equal(t, "2026-03-10", Day(local))
	assert.Equal(t, "2026-03-10", Day(local.UTC()))
}

func TestAssignmentAtRisk(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)
	nextWeek := today.Add(7 * 24 * time.Hour)

	cases := []struct {
		name       string
		status     AssignmentStatus
		onSiteDate *time.Time
		want       bool
	}{
		{"non compliant on site", AssignmentNonCompliant, &yesterday, true},
		{"pending with no date", AssignmentPending, nil, true},
		{"non compliant due later", AssignmentNonCompliant, &nextWeek, false},
		{"compliant on site", AssignmentCompliant, &yesterday, false},
		{"exception on site", AssignmentException, &yesterday, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Assignment{Status: tc.status, OnSiteDate: tc.onSiteDate}
			assert.Equal(t, tc.want, a.AtRisk(today))
		})
	}
}

func TestExceptionExpiredBy(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Exception{Status: ExceptionActive, ExpiresAt: &past}.ExpiredBy(now))
	assert.False(t, Exception{Status: ExceptionActive, ExpiresAt: &future}.ExpiredBy(now))
	// No expiry means permanent.
	assert.False(t, Exception{Status: ExceptionActive}.ExpiredBy(now))
	assert.False(t, Exception{Status: ExceptionResolved, ExpiresAt: &past}.ExpiredBy(now))
}

func TestSubcontractorBestEmail(t *testing.T) {
	assert.Equal(t, "office@apex.test", Subcontractor{ContactEmail: "office@apex.test", BrokerEmail: "broker@cover.test"}.BestEmail())
	assert.Equal(t, "broker@cover.test", Subcontractor{BrokerEmail: "broker@cover.test"}.BestEmail())
	assert.Empty(t, Subcontractor{}.BestEmail())
}

func TestCommunicationOutbound(t *testing.T) {
	assert.True(t, Communication{Status: CommSent}.Outbound())
	assert.True(t, Communication{Status: CommDelivered}.Outbound())
	assert.True(t, Communication{Status: CommOpened}.Outbound())
	assert.False(t, Communication{Status: CommPending}.Outbound())
	assert.False(t, Communication{Status: CommFailed}.Outbound())
}

func TestProjectActive(t *testing.T) {
	assert.True(t, Project{Status: ProjectActive}.Active())
	assert.True(t, Project{Status: ProjectOnHold}.Active())
	assert.False(t, Project{Status: ProjectCompleted}.Active())
}
