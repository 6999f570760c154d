package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simeonpalla/GovLensAP/models"
)

const validPayload = `{
	"primaryDepartment": "Roads & Buildings",
	"secondaryDepartments": ["Municipal Administration"],
	"issueType": "Pothole",
	"severity": "High",
	"fundingRequired": true,
	"estimatedCost": "₹1,20,000",
	"permissionsNeeded": ["Ward Officer Approval"],
	"interdeptCoordination": true,
	"estimatedTimeline": "7 days",
	"reasoning": "Deep pothole on an arterial road, high accident risk."
}`

func TestDecodeAnalysis(t *testing.T) {
	analysis, err := decodeAnalysis(validPayload)
	require.NoError(t, err)

	assert.Equal(t, "Roads & Buildings", analysis.PrimaryDepartment)
	assert.Equal(t, models.SeverityHigh, analysis.Severity)
	assert.True(t, analysis.FundingRequired)
	assert.False(t, analysis.Fallback)
}

func TestDecodeAnalysisStripsCodeFences(t *testing.T) {
	analysis, err := decodeAnalysis("```json\n" + validPayload + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Pothole", analysis.IssueType)
}

func TestDecodeAnalysisFailsClosedOnMissingKeys(t *testing.T) {
	_, err := decodeAnalysis(`{"primaryDepartment": "Roads & Buildings"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required keys")
}

func TestDecodeAnalysisFailsClosedOnUnknownSeverity(t *testing.T) {
	_, err := decodeAnalysis(`{
		"primaryDepartment": "Roads & Buildings",
		"issueType": "Pothole",
		"severity": "Catastrophic",
		"estimatedCost": "₹1,000",
		"estimatedTimeline": "7 days",
		"reasoning": "r"
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

func TestDecodeAnalysisRejectsInvalidJSON(t *testing.T) {
	_, err := decodeAnalysis("not json at all")
	assert.Error(t, err)
}

func TestDecodeAnalysisNormalizesNilLists(t *testing.T) {
	analysis, err := decodeAnalysis(`{
		"primaryDepartment": "Roads & Buildings",
		"issueType": "Pothole",
		"severity": "Low",
		"estimatedCost": "₹1,000",
		"estimatedTimeline": "7 days",
		"reasoning": "r"
	}`)
	require.NoError(t, err)
	assert.NotNil(t, analysis.SecondaryDepartments)
	assert.NotNil(t, analysis.PermissionsNeeded)
}

func TestDecodeAnalysisClearsClaimedFallbackFlag(t *testing.T) {
	analysis, err := decodeAnalysis(`{
		"primaryDepartment": "Roads & Buildings",
		"issueType": "Pothole",
		"severity": "Low",
		"estimatedCost": "₹1,000",
		"estimatedTimeline": "7 days",
		"reasoning": "r",
		"fallback": true
	}`)
	require.NoError(t, err)
	assert.False(t, analysis.Fallback)
}

func TestFallback(t *testing.T) {
	fb := Fallback()

	assert.True(t, fb.Fallback)
	assert.Equal(t, "Roads & Buildings", fb.PrimaryDepartment)
	assert.Equal(t, models.SeverityMedium, fb.Severity)
	assert.Equal(t, "₹50,000", fb.EstimatedCost)
	assert.Equal(t, "14 days", fb.EstimatedTimeline)
	assert.Equal(t, "Fallback analysis used due to API error.", fb.Reasoning)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateAnalysisClientPayload(t *testing.T) {
	valid := models.AIAnalysis{
		PrimaryDepartment: "Roads & Buildings",
		IssueType:         "Pothole",
		Severity:          models.SeverityHigh,
		EstimatedCost:     "₹1,20,000",
		EstimatedTimeline: "7 days",
		Reasoning:         "Arterial road, accident risk.",
		Fallback:          true,
	}
	require.NoError(t, ValidateAnalysis(&valid))
	assert.False(t, valid.Fallback)
	assert.Equal(t, []string{}, valid.SecondaryDepartments)
	assert.Equal(t, []string{}, valid.PermissionsNeeded)

	unknown := valid
	unknown.Severity = "Catastrophic"
	err := ValidateAnalysis(&unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")

	incomplete := valid
	incomplete.PrimaryDepartment = ""
	incomplete.Reasoning = ""
	err = ValidateAnalysis(&incomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required keys: primaryDepartment, reasoning")
}
