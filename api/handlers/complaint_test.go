package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simeonpalla/GovLensAP/api/handlers"
	"github.com/simeonpalla/GovLensAP/config"
	"github.com/simeonpalla/GovLensAP/databases"
	"github.com/simeonpalla/GovLensAP/models"
)

type stubClassifier struct {
	analysis      *models.AIAnalysis
	analyzeErr    error
	transcript    string
	transcribeErr error
}

func (s *stubClassifier) Analyze(ctx context.Context, image []byte, mimeType, description, location string) (*models.AIAnalysis, error) {
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return s.analysis, nil
}

func (s *stubClassifier) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if s.transcribeErr != nil {
		return "", s.transcribeErr
	}
	return s.transcript, nil
}

func genuineAnalysis() models.AIAnalysis {
	return models.AIAnalysis{
		PrimaryDepartment:    "Roads & Buildings",
		SecondaryDepartments: []string{},
		IssueType:            "Pothole",
		Severity:             models.SeverityHigh,
		FundingRequired:      true,
		EstimatedCost:        "₹1,20,000",
		PermissionsNeeded:    []string{"Ward Officer Approval"},
		EstimatedTimeline:    "7 days",
		Reasoning:            "Arterial road, accident risk.",
	}
}

func newComplaintHandler(t *testing.T) (handlers.Complaint, databases.ComplaintDatabase) {
	t.Helper()
	store := databases.NewComplaintFile(filepath.Join(t.TempDir(), "complaints.json"))
	require.NoError(t, store.InitStorage(context.Background()))
	conf := &config.Config{JurisdictionCode: "AP"}
	return handlers.Complaint{DB: store, AI: &stubClassifier{}, Conf: conf}, store
}

const testImage = "data:image/jpeg;base64,aGVsbG8="

func TestComplaint_CreateComplaintHandler(t *testing.T) {
	c, store := newComplaintHandler(t)

	analysis := genuineAnalysis()
	body, _ := json.Marshal(map[string]interface{}{
		"image":       testImage,
		"description": "pothole on main road",
		"location":    "Ward 5",
		"analysis":    analysis,
	})
	req := httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		ID     string        `json:"id"`
		Status models.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Regexp(t, regexp.MustCompile(`^AP-\d{4}-[A-Z0-9]{6}$`), resp.ID)
	assert.Equal(t, models.StatusSubmitted, resp.Status)

	stored, err := store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis, stored.Analysis)
	assert.Equal(t, testImage, stored.Image)
	require.Len(t, stored.Timeline, 1)
	assert.Nil(t, stored.Timeline[0].Officer)
}

func TestComplaint_CreateComplaintHandlerMissingImage(t *testing.T) {
	c, _ := newComplaintHandler(t)

	body := []byte(`{"description": "pothole", "location": "Ward 5"}`)
	req := httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestComplaint_CreateComplaintHandlerAnalysisFallback(t *testing.T) {
	c, store := newComplaintHandler(t)
	c.AI = &stubClassifier{analyzeErr: errors.New("gemini unreachable")}

	body := []byte(`{"image": "` + testImage + `", "description": "pothole on main road", "location": "Ward 5"}`)
	req := httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	stored, err := store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analysis.Fallback)
	assert.Equal(t, "Roads & Buildings", stored.Analysis.PrimaryDepartment)
}

func TestComplaint_ComplaintByIDHandler(t *testing.T) {
	c, store := newComplaintHandler(t)
	require.NoError(t, store.Insert(context.Background(),
		models.NewComplaint("AP-2026-ABC123", genuineAnalysis(), testImage, "pothole on main road", "Ward 5")))

	req := httptest.NewRequest("GET", "/api/v1/complaint/AP-2026-ABC123", nil)
	req = mux.SetURLVars(req, map[string]string{"complaint_id": "AP-2026-ABC123"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.ComplaintByIDHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Complaint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "AP-2026-ABC123", got.ID)
	assert.Equal(t, models.StatusSubmitted, got.Status)
}

func TestComplaint_ComplaintByIDHandlerNotFound(t *testing.T) {
	c, _ := newComplaintHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/complaint/AP-2026-ZZZ999", nil)
	req = mux.SetURLVars(req, map[string]string{"complaint_id": "AP-2026-ZZZ999"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.ComplaintByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ID not found, please verify", resp.Response.Message)
}

func TestComplaint_ComplaintQueueHandlerFilters(t *testing.T) {
	c, store := newComplaintHandler(t)
	ctx := context.Background()

	roads := genuineAnalysis()
	water := genuineAnalysis()
	water.PrimaryDepartment = "Water Supply"
	require.NoError(t, store.Insert(ctx, models.NewComplaint("AP-2026-AAA111", roads, testImage, "pothole", "Ward 5")))
	require.NoError(t, store.Insert(ctx, models.NewComplaint("AP-2026-BBB222", water, testImage, "pipe burst", "Ward 7")))
	require.NoError(t, store.AppendAction(ctx, "AP-2026-BBB222", models.ActionMarkResolved, "fixed", "Officer X"))

	req := httptest.NewRequest("GET", "/api/v1/complaints?department=Water+Supply&status=Resolved", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ComplaintQueueHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.Complaint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AP-2026-BBB222", got[0].ID)

	// unfiltered queue returns both, creation order
	req = httptest.NewRequest("GET", "/api/v1/complaints", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(c.ComplaintQueueHandler).ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "AP-2026-AAA111", got[0].ID)

	// sort=desc flips to newest first
	req = httptest.NewRequest("GET", "/api/v1/complaints?sort=desc", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(c.ComplaintQueueHandler).ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "AP-2026-BBB222", got[0].ID)
}

func TestComplaint_ApplyActionHandler(t *testing.T) {
	c, store := newComplaintHandler(t)
	require.NoError(t, store.Insert(context.Background(),
		models.NewComplaint("AP-2026-ABC123", genuineAnalysis(), testImage, "pothole on main road", "Ward 5")))

	body := []byte(`{"action": "Assign to Team", "notes": "dispatched to roads team", "officer": "Officer X"}`)
	req := httptest.NewRequest("PUT", "/api/v1/complaint/AP-2026-ABC123/action", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"complaint_id": "AP-2026-ABC123"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.ApplyActionHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Complaint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.StatusAssigned, got.Status)
	require.Len(t, got.Timeline, 2)
	require.NotNil(t, got.Timeline[1].Officer)
	assert.Equal(t, "Officer X", *got.Timeline[1].Officer)
	assert.Equal(t, "dispatched to roads team", got.Timeline[1].Action)
}

func TestComplaint_ApplyActionHandlerNotFound(t *testing.T) {
	c, store := newComplaintHandler(t)
	require.NoError(t, store.Insert(context.Background(),
		models.NewComplaint("AP-2026-ABC123", genuineAnalysis(), testImage, "pothole", "Ward 5")))

	body := []byte(`{"action": "Mark Resolved", "notes": "n/a", "officer": "Officer X"}`)
	req := httptest.NewRequest("PUT", "/api/v1/complaint/AP-2026-ZZZ999/action", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"complaint_id": "AP-2026-ZZZ999"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.ApplyActionHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	// the collection is untouched
	all, err := store.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Timeline, 1)
}

func TestComplaint_ApplyActionHandlerMissingAction(t *testing.T) {
	c, _ := newComplaintHandler(t)

	req := httptest.NewRequest("PUT", "/api/v1/complaint/AP-2026-ABC123/action", bytes.NewReader([]byte(`{"notes": "n"}`)))
	req = mux.SetURLVars(req, map[string]string{"complaint_id": "AP-2026-ABC123"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(c.ApplyActionHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestComplaint_StatsHandler(t *testing.T) {
	c, store := newComplaintHandler(t)
	ctx := context.Background()

	a := genuineAnalysis()
	b := genuineAnalysis()
	b.Severity = models.SeverityCritical
	require.NoError(t, store.Insert(ctx, models.NewComplaint("AP-2026-AAA111", a, testImage, "pothole", "Ward 5")))
	require.NoError(t, store.Insert(ctx, models.NewComplaint("AP-2026-BBB222", b, testImage, "open drain", "Ward 7")))
	require.NoError(t, store.AppendAction(ctx, "AP-2026-AAA111", models.ActionMarkResolved, "patched", "Officer X"))

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.StatsHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var stats struct {
		Total        int            `json:"total"`
		Pending      int            `json:"pending"`
		Resolved     int            `json:"resolved"`
		ByDepartment map[string]int `json:"byDepartment"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.ByDepartment["Roads & Buildings"])
}

// Full lifecycle: submit, track, act, track again.
func TestComplaint_SubmitTrackActScenario(t *testing.T) {
	c, _ := newComplaintHandler(t)

	body, _ := json.Marshal(map[string]interface{}{
		"image":       testImage,
		"description": "pothole on main road",
		"location":    "Ward 5",
		"analysis":    genuineAnalysis(),
	})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	actionBody := []byte(`{"action": "Assign to Team", "notes": "dispatched to roads team", "officer": "Officer X"}`)
	req := httptest.NewRequest("PUT", "/api/v1/complaint/"+created.ID+"/action", bytes.NewReader(actionBody))
	req = mux.SetURLVars(req, map[string]string{"complaint_id": created.ID})
	rr = httptest.NewRecorder()
	http.HandlerFunc(c.ApplyActionHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest("GET", "/api/v1/complaint/"+created.ID, nil)
	req = mux.SetURLVars(req, map[string]string{"complaint_id": created.ID})
	rr = httptest.NewRecorder()
	http.HandlerFunc(c.ComplaintByIDHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.Complaint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Len(t, got.Timeline, 2)
}

func TestComplaint_CreateComplaintHandlerRejectsInvalidAnalysis(t *testing.T) {
	c, store := newComplaintHandler(t)

	badSeverity := genuineAnalysis()
	badSeverity.Severity = "Catastrophic"
	missingKeys := genuineAnalysis()
	missingKeys.Reasoning = ""

	tests := []struct {
		name     string
		analysis models.AIAnalysis
	}{
		{"unknown severity", badSeverity},
		{"missing required keys", missingKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]interface{}{
				"image":       testImage,
				"description": "pothole on main road",
				"location":    "Ward 5",
				"analysis":    tt.analysis,
			})
			rr := httptest.NewRecorder()
			http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	all, err := store.Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestComplaint_CreateComplaintHandlerClearsForgedFallback(t *testing.T) {
	c, store := newComplaintHandler(t)

	forged := genuineAnalysis()
	forged.Fallback = true
	forged.SecondaryDepartments = nil
	forged.PermissionsNeeded = nil
	body, _ := json.Marshal(map[string]interface{}{
		"image":       testImage,
		"description": "pothole on main road",
		"location":    "Ward 5",
		"analysis":    forged,
	})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/complaints", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	stored, err := store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.False(t, stored.Analysis.Fallback)
	assert.Equal(t, []string{}, stored.Analysis.SecondaryDepartments)
	assert.Equal(t, []string{}, stored.Analysis.PermissionsNeeded)
}
