package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/config"
	"github.com/simeonpalla/GovLensAP/gemini"
)

// Analysis exported for testing purposes
type Analysis struct {
	AI gemini.Classifier
}

type analyzeRequest struct {
	Image       string `json:"image"` // data URI or bare base64
	Description string `json:"description"`
	Location    string `json:"location"`
}

// AnalyzeHandler runs the AI classification a citizen previews before
// confirming a submission. A collaborator failure is not an error to the
// citizen: the response carries the clearly-flagged fallback analysis
// instead, so the submit flow keeps working.
func (a Analysis) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req analyzeRequest
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

	imageBytes, mimeType, err := parseDataURI(req.Image)
	if err != nil {
		config.ErrorStatus("image must be a base64 data URI", http.StatusBadRequest, w, err)
		return
	}

	analysis, err := a.AI.Analyze(r.Context(), imageBytes, mimeType, req.Description, req.Location)
	if err != nil {
		zap.S().Errorw("AI analysis failed, serving fallback", "error", err)
		fb := gemini.Fallback()
		analysis = &fb
	}

	b, err := json.Marshal(analysis)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type transcribeRequest struct {
	Audio    string `json:"audio"` // base64
	MimeType string `json:"mimeType"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// TranscribeHandler converts a recorded voice note into text. Failures are
// structured JSON errors, never an error message posing as a transcript.
func (a Analysis) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Audio == "" {
		config.ErrorStatus("an audio recording is required", http.StatusBadRequest, w, errors.New("missing audio"))
		return
	}

	audioBytes, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		config.ErrorStatus("audio must be base64 encoded", http.StatusBadRequest, w, err)
		return
	}

	transcript, err := a.AI.Transcribe(r.Context(), audioBytes, req.MimeType)
	if err != nil {
		config.ErrorStatus("transcription failed", http.StatusUnprocessableEntity, w, err)
		return
	}

	b, err := json.Marshal(transcribeResponse{Transcript: transcript})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
