package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/api"
	"github.com/simeonpalla/GovLensAP/config"
	"github.com/simeonpalla/GovLensAP/databases"
	"github.com/simeonpalla/GovLensAP/gemini"
	"github.com/simeonpalla/GovLensAP/models"
)

// Complaint exported for testing purposes
type Complaint struct {
	DB   databases.ComplaintDatabase
	AI   gemini.Classifier
	Hub  *FeedHub
	Conf *config.Config
}

type createComplaintRequest struct {
	Image       string             `json:"image"` // data URI
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Analysis    *models.AIAnalysis `json:"analysis,omitempty"`
}

type createComplaintResponse struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
}

// CreateComplaintHandler records a confirmed citizen submission. The client
// normally sends the analysis it previewed through /analyze; when it is
// omitted the classification runs here, substituting the fallback on error
// so the submission still completes.
func (c Complaint) CreateComplaintHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Image == "" {
		config.ErrorStatus("a photo of the issue is required", http.StatusBadRequest, w, errors.New("missing image"))
		return
	}
	if req.Description == "" {
		config.ErrorStatus("a description of the issue is required", http.StatusBadRequest, w, errors.New("missing description"))
		return
	}

	analysis := req.Analysis
	if analysis != nil {
		// a previewed analysis gets the same fail-closed checks as a fresh
		// classification; this also strips a forged fallback flag
		if err := gemini.ValidateAnalysis(analysis); err != nil {
			config.ErrorStatus("invalid analysis payload", http.StatusBadRequest, w, err)
			return
		}
	}
	if analysis == nil {
		imageBytes, mimeType, err := parseDataURI(req.Image)
		if err != nil {
			config.ErrorStatus("image must be a base64 data URI", http.StatusBadRequest, w, err)
			return
		}
		result, err := c.AI.Analyze(r.Context(), imageBytes, mimeType, req.Description, req.Location)
		if err != nil {
			zap.S().Errorw("AI analysis failed, using fallback", "error", err)
			fb := gemini.Fallback()
			result = &fb
		}
		analysis = result
	}

	image := Photo{}.StoreImage(r.Context(), req.Image)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id := c.newTrackingID()
	complaint := models.NewComplaint(id, *analysis, image, req.Description, req.Location)
	err := c.DB.Insert(ctx, complaint)
	if errors.Is(err, databases.ErrDuplicateID) {
		// 6-char suffix collision, mint a fresh ID and retry once
		id = c.newTrackingID()
		complaint = models.NewComplaint(id, *analysis, image, req.Description, req.Location)
		err = c.DB.Insert(ctx, complaint)
	}
	if err != nil {
		config.ErrorStatus("failed to save complaint", http.StatusServiceUnavailable, w, err)
		return
	}

	zap.S().Infow("complaint submitted",
		"id", id,
		"department", complaint.Analysis.PrimaryDepartment,
		"severity", complaint.Analysis.Severity,
		"fallback", complaint.Analysis.Fallback,
	)
	c.Hub.Broadcast("complaint_created", complaint)

	w.WriteHeader(http.StatusCreated)
	b, _ := json.Marshal(createComplaintResponse{ID: id, Status: complaint.Status})
	w.Write(b)
}

// ComplaintByIDHandler returns a complaint by tracking ID
func (c Complaint) ComplaintByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	complaintID := mux.Vars(r)["complaint_id"]

	zap.S().Debugf("complaint_id: %v", complaintID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindByID(ctx, complaintID)
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("ID not found, please verify", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("complaint storage unavailable", http.StatusServiceUnavailable, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ComplaintQueueHandler returns the complaint queue for the officer
// dashboard, optionally filtered by department and status
func (c Complaint) ComplaintQueueHandler(w http.ResponseWriter, r *http.Request) {
	departments := splitFilter(r.URL.Query().Get("department"))
	statuses := splitFilter(r.URL.Query().Get("status"))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx)
	if err != nil {
		config.ErrorStatus("complaint storage unavailable", http.StatusServiceUnavailable, w, err)
		return
	}

	filtered := make([]models.Complaint, 0, len(dbResp))
	for _, complaint := range dbResp {
		if len(departments) > 0 && !contains(departments, complaint.Analysis.PrimaryDepartment) {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, string(complaint.Status)) {
			continue
		}
		filtered = append(filtered, complaint)
	}

	if r.URL.Query().Get("sort") == "desc" {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	b, err := json.Marshal(filtered)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type applyActionRequest struct {
	Action  string `json:"action"`
	Notes   string `json:"notes"`
	Officer string `json:"officer"`
}

// ApplyActionHandler applies an officer action: it appends a timeline event
// and moves the complaint through the lifecycle policy
func (c Complaint) ApplyActionHandler(w http.ResponseWriter, r *http.Request) {
	complaintID := mux.Vars(r)["complaint_id"]

	var req applyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Action == "" {
		config.ErrorStatus("action is required", http.StatusBadRequest, w, errors.New("missing action"))
		return
	}
	if req.Officer == "" {
		req.Officer = "Admin"
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err := c.DB.AppendAction(ctx, complaintID, req.Action, req.Notes, req.Officer)
	if errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("ID not found, please verify", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to update complaint", http.StatusServiceUnavailable, w, err)
		return
	}

	updated, err := c.DB.FindByID(ctx, complaintID)
	if err != nil {
		config.ErrorStatus("failed to reload complaint", http.StatusServiceUnavailable, w, err)
		return
	}

	zap.S().Infow("officer action applied",
		"id", complaintID,
		"action", req.Action,
		"status", updated.Status,
		"officer", req.Officer,
	)
	c.Hub.Broadcast("complaint_updated", *updated)

	b, err := json.Marshal(updated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type statsResponse struct {
	Total        int                     `json:"total"`
	Pending      int                     `json:"pending"`
	Resolved     int                     `json:"resolved"`
	ByDepartment map[string]int          `json:"byDepartment"`
	BySeverity   map[models.Severity]int `json:"bySeverity"`
	ByStatus     map[models.Status]int   `json:"byStatus"`
}

// StatsHandler returns the dashboard metric counts
func (c Complaint) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx)
	if err != nil {
		config.ErrorStatus("complaint storage unavailable", http.StatusServiceUnavailable, w, err)
		return
	}

	stats := statsResponse{
		ByDepartment: map[string]int{},
		BySeverity:   map[models.Severity]int{},
		ByStatus:     map[models.Status]int{},
	}
	for _, complaint := range dbResp {
		stats.Total++
		if complaint.Status == models.StatusResolved {
			stats.Resolved++
		} else {
			stats.Pending++
		}
		stats.ByDepartment[complaint.Analysis.PrimaryDepartment]++
		stats.BySeverity[complaint.Analysis.Severity]++
		stats.ByStatus[complaint.Status]++
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (c Complaint) newTrackingID() string {
	code := "AP"
	if c.Conf != nil && c.Conf.JurisdictionCode != "" {
		code = c.Conf.JurisdictionCode
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("%s-%d-%s", code, time.Now().Year(), suffix)
}

// parseDataURI decodes a "data:<mime>;base64,<payload>" string. Bare base64
// is accepted too and assumed to be a jpeg.
func parseDataURI(s string) ([]byte, string, error) {
	mimeType := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		rest := strings.TrimPrefix(s, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return nil, "", errors.New("data URI is not base64 encoded")
		}
		mimeType = rest[:semi]
		payload = rest[semi+len(";base64,"):]
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	return b, mimeType, nil
}

func splitFilter(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
