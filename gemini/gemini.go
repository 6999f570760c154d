// Package gemini talks to the external Gemini API for complaint
// classification and voice-note transcription. The record store treats its
// output as a closed value; nothing here is ever re-derived after
// submission.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/simeonpalla/GovLensAP/models"
)

const defaultModel = "gemini-3-flash-preview"

// Classifier is the narrow interface handlers consume, so tests can stub the
// external collaborator.
type Classifier interface {
	Analyze(ctx context.Context, image []byte, mimeType, description, location string) (*models.AIAnalysis, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Service is the genai-backed Classifier.
type Service struct {
	client *genai.Client
	model  string
}

// New creates a Gemini service using the provided API key.
func New(ctx context.Context, apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Service{client: client, model: defaultModel}, nil
}

// Analyze classifies a civic complaint from its photo, description and
// location. The request asks for strict JSON and grounds the answer with
// Google Search; grounding sources are copied onto the result when present.
func (s *Service) Analyze(ctx context.Context, image []byte, mimeType, description, location string) (*models.AIAnalysis, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(analysisPrompt(description, location)),
		}, genai.RoleUser),
	}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}

	analysis, err := decodeAnalysis(resp.Text())
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			analysis.GroundingSources = append(analysis.GroundingSources, models.GroundingSource{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}
	return analysis, nil
}

// Transcribe converts a voice note to English text. Telugu speech is
// translated. Failures are returned as errors, never folded into the
// transcript string.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mimeType),
			genai.NewPartFromText("Accurately transcribe the following audio. The speaker might be speaking in English or Telugu. Provide an English translation if it is in Telugu."),
		}, genai.RoleUser),
	}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	transcript := strings.TrimSpace(resp.Text())
	if transcript == "" {
		return "", errors.New("transcription returned no text")
	}
	return transcript, nil
}

// Fallback is the fixed analysis substituted when the classification call
// fails, so a citizen submission can still complete. The Fallback flag keeps
// it distinguishable from a genuine result.
func Fallback() models.AIAnalysis {
	return models.AIAnalysis{
		PrimaryDepartment:     "Roads & Buildings",
		SecondaryDepartments:  []string{},
		IssueType:             "Infrastructure Issue",
		Severity:              models.SeverityMedium,
		FundingRequired:       true,
		EstimatedCost:         "₹50,000",
		PermissionsNeeded:     []string{"Local Approval"},
		InterdeptCoordination: false,
		EstimatedTimeline:     "14 days",
		Reasoning:             "Fallback analysis used due to API error.",
		Fallback:              true,
	}
}

func analysisPrompt(description, location string) string {
	return fmt.Sprintf(`Analyze this civic infrastructure complaint from Andhra Pradesh, India.

LOCATION: %s
DESCRIPTION: %s

Perform the following:
1. Identify the responsible AP government department.
2. Estimate a typical budget required for this fix in Rupees.
3. Determine the severity (Low, Medium, High, Critical).
4. Provide reasoning based on impact to public safety.
5. Search for current AP government schemes related to this issue.

Respond STRICTLY in JSON format with the following keys:
primaryDepartment, secondaryDepartments, issueType, severity, fundingRequired (bool), estimatedCost, permissionsNeeded (list), interdeptCoordination (bool), estimatedTimeline, reasoning.`, location, description)
}

// decodeAnalysis fails closed: a payload missing required keys or carrying
// an unknown severity is an error, not a partially trusted result.
func decodeAnalysis(raw string) (*models.AIAnalysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var analysis models.AIAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("analysis response is not valid JSON: %w", err)
	}
	if err := ValidateAnalysis(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ValidateAnalysis applies the same fail-closed checks to every analysis
// entering a record, whether decoded from the model or carried in a client
// request: required keys must be present, the severity must be a known
// value, nil lists are normalized, and a claimed fallback flag is cleared.
func ValidateAnalysis(analysis *models.AIAnalysis) error {
	var missing []string
	for key, val := range map[string]string{
		"primaryDepartment": analysis.PrimaryDepartment,
		"issueType":         analysis.IssueType,
		"severity":          string(analysis.Severity),
		"estimatedCost":     analysis.EstimatedCost,
		"estimatedTimeline": analysis.EstimatedTimeline,
		"reasoning":         analysis.Reasoning,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("analysis missing required keys: %s", strings.Join(missing, ", "))
	}

	switch analysis.Severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		return fmt.Errorf("analysis has unknown severity %q", analysis.Severity)
	}

	if analysis.SecondaryDepartments == nil {
		analysis.SecondaryDepartments = []string{}
	}
	if analysis.PermissionsNeeded == nil {
		analysis.PermissionsNeeded = []string{}
	}
	if analysis.Fallback {
		zap.S().Warn("analysis claimed the fallback flag, clearing it")
		analysis.Fallback = false
	}
	return nil
}
