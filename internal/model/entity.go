package model

import "time"

// Region identifies the market a competitor operates in.
type Region string

const (
	RegionTR     Region = "TR"
	RegionGlobal Region = "Global"
)

// Competitor is a tracked crypto exchange or app. Identity is the canonical
// name, unique case-insensitively after trimming.
type Competitor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Region      Region    `json:"region,omitempty"`
	Website     string    `json:"website,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FeaturePriority ranks how important a feature is to track.
type FeaturePriority string

const (
	PriorityCritical FeaturePriority = "critical"
	PriorityHigh     FeaturePriority = "high"
	PriorityMedium   FeaturePriority = "medium"
)

// Feature is a named product capability from the closed, externally governed
// taxonomy. Features are only created by seeding, never by classification.
type Feature struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Priority    FeaturePriority `json:"priority"`
	Description string          `json:"description,omitempty"`
}

// Quality grades how well a competitor implements a feature.
type Quality string

const (
	QualityNone      Quality = "none"
	QualityBasic     Quality = "basic"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// CompetitorFeature is one cell of the competitor/feature matrix.
// Exactly one row exists per (CompetitorID, FeatureID) pair; all writes are
// upserts keyed on that composite.
type CompetitorFeature struct {
	ID           string    `json:"id"`
	CompetitorID string    `json:"competitor_id"`
	FeatureID    string    `json:"feature_id"`
	HasFeature   bool      `json:"has_feature"`
	Quality      Quality   `json:"implementation_quality"`
	Notes        string    `json:"notes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CellPatch carries the fields to merge into a matrix cell. Nil fields are
// left untouched so an upsert never clears data it was not given.
type CellPatch struct {
	HasFeature *bool
	Quality    *Quality
	Notes      *string
}

// ClassMethod records which classification tier produced a feature guess.
type ClassMethod string

const (
	MatchFolderExact     ClassMethod = "folder-exact"
	MatchFolderPartial   ClassMethod = "folder-partial"
	MatchFilenameKeyword ClassMethod = "filename-keyword"
	MatchNone            ClassMethod = "none"
)

// Confidence returns the score associated with a classification tier.
func (m ClassMethod) Confidence() float64 {
	switch m {
	case MatchFolderExact:
		return 1.0
	case MatchFolderPartial:
		return 0.8
	case MatchFilenameKeyword:
		return 0.6
	default:
		return 0
	}
}

// Screenshot is one stored image documenting a competitor feature. Two
// physical representations exist with the same semantics: the legacy model
// scoped under a CompetitorFeature relation and the current flat model scoped
// under Competitor with an optional feature pointer. Legacy reports which one
// a record came from; the stores treat both as one logical set.
type Screenshot struct {
	ID           string      `json:"id"`
	CompetitorID string      `json:"competitor_id"`
	FeatureID    *string     `json:"feature_id,omitempty"`
	FilePath     string      `json:"file_path"`
	FileName     string      `json:"file_name"`
	FileSize     int64       `json:"file_size"`
	MimeType     string      `json:"mime_type"`
	IsOnboarding bool        `json:"is_onboarding"`
	UploadSource string      `json:"upload_source,omitempty"`
	Caption      string      `json:"caption,omitempty"`
	ClassMethod  ClassMethod `json:"class_method,omitempty"`
	Confidence   float64     `json:"confidence,omitempty"`
	Legacy       bool        `json:"legacy,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ScreenshotFilter narrows ListAll results.
type ScreenshotFilter struct {
	CompetitorID string
	FeatureID    string
	Unassigned   bool // only screenshots with no feature reference
	Limit        int
}
