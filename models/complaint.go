package models

import "time"

// Status is the lifecycle state of a complaint. The wire strings match the
// persisted complaints document, including the space in "Under Review".
type Status string

// All statuses a complaint can hold.
const (
	StatusSubmitted   Status = "Submitted"
	StatusAssigned    Status = "Assigned"
	StatusForwarded   Status = "Forwarded"
	StatusUnderReview Status = "Under Review"
	StatusResolved    Status = "Resolved"
)

// Severity is the qualitative urgency label assigned by the AI analysis.
type Severity string

// Severity labels, lowest to highest.
const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Complaint holds a single citizen grievance as stored in the complaints
// collection. ID, Timestamp, Image, Description, Location and Analysis are
// immutable once the record is created; Status and Timeline change only
// through officer actions.
type Complaint struct {
	ID string `json:"id" bson:"id"`
	// Timestamp is the submission time in RFC3339; the wire name
	// "timestamp" is fixed by the persisted document format.
	Timestamp   string          `json:"timestamp" bson:"timestamp"`
	Image       string          `json:"image" bson:"image"` // data URI or upload URL
	Description string          `json:"description" bson:"description"`
	Location    string          `json:"location" bson:"location"`
	Analysis    AIAnalysis      `json:"analysis" bson:"analysis"`
	Status      Status          `json:"status" bson:"status"`
	Timeline    []TimelineEvent `json:"timeline" bson:"timeline"`
}

// TimelineEvent is one append-only lifecycle log entry. Officer is nil for
// the system-generated submission event and serializes as JSON null.
type TimelineEvent struct {
	Stage     string  `json:"stage" bson:"stage"`
	Timestamp string  `json:"timestamp" bson:"timestamp"`
	Officer   *string `json:"officer" bson:"officer"`
	Action    string  `json:"action" bson:"action"`
}

// AIAnalysis holds the structured classification returned by the AI
// collaborator. It is attached once at submission and never re-derived.
// Fallback marks the substituted result used when the classification call
// failed, so it stays distinguishable from a genuine one.
type AIAnalysis struct {
	PrimaryDepartment     string             `json:"primaryDepartment" bson:"primaryDepartment"`
	SecondaryDepartments  []string           `json:"secondaryDepartments" bson:"secondaryDepartments"`
	IssueType             string             `json:"issueType" bson:"issueType"`
	Severity              Severity           `json:"severity" bson:"severity"`
	FundingRequired       bool               `json:"fundingRequired" bson:"fundingRequired"`
	EstimatedCost         string             `json:"estimatedCost" bson:"estimatedCost"`
	PermissionsNeeded     []string           `json:"permissionsNeeded" bson:"permissionsNeeded"`
	InterdeptCoordination bool               `json:"interdeptCoordination" bson:"interdeptCoordination"`
	EstimatedTimeline     string             `json:"estimatedTimeline" bson:"estimatedTimeline"`
	Reasoning             string             `json:"reasoning" bson:"reasoning"`
	GroundingSources      []GroundingSource  `json:"groundingSources,omitempty" bson:"groundingSources,omitempty"`
	Fallback              bool               `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

// GroundingSource is one web source the AI analysis was grounded on.
type GroundingSource struct {
	Title string `json:"title,omitempty" bson:"title,omitempty"`
	URI   string `json:"uri,omitempty" bson:"uri,omitempty"`
}

// SubmissionNote is the system-generated note on the initial timeline event.
const SubmissionNote = "Complaint received and analyzed by AI"

// NewComplaint builds a freshly submitted complaint: status Submitted and a
// single system-generated timeline event with no officer.
func NewComplaint(id string, analysis AIAnalysis, image, description, location string) Complaint {
	now := time.Now().Format(time.RFC3339)
	return Complaint{
		ID:          id,
		Timestamp:   now,
		Image:       image,
		Description: description,
		Location:    location,
		Analysis:    analysis,
		Status:      StatusSubmitted,
		Timeline: []TimelineEvent{
			{
				Stage:     string(StatusSubmitted),
				Timestamp: now,
				Officer:   nil,
				Action:    SubmissionNote,
			},
		},
	}
}
