package core

import (
	"time"
)

// AnalysisFileType classifies an analysis file for filtering.
type AnalysisFileType int

const (
	FileTypeSample AnalysisFileType = iota
	FileTypeQC
	FileTypeBlank
	FileTypeStandard
)

func (t AnalysisFileType) String() string {
	switch t {
	case FileTypeQC:
		return "QC"
	case FileTypeBlank:
		return "Blank"
	case FileTypeStandard:
		return "Standard"
	default:
		return "Sample"
	}
}

// AnalysisFile describes one measured sample of an alignment project.
// IDs are dense and equal to the file's index in the project.
type AnalysisFile struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Class        string           `json:"class"`
	Type         AnalysisFileType `json:"-"`
	TypeName     string           `json:"type"`
	SpectraPath  string           `json:"spectra"`
	PeakListPath string           `json:"peaks"`
}

// IonMode is the polarity of the acquisition.
type IonMode int

const (
	IonModePositive IonMode = iota
	IonModeNegative
)

func (m IonMode) String() string {
	if m == IonModeNegative {
		return "Negative"
	}
	return "Positive"
}

// AlignmentSpotProperty is one row of the alignment result: a putative
// compound feature measured across all analysis files.
//
// AlignedPeakProperties always has one entry per analysis file, indexed by file ID.
type AlignmentSpotProperty struct {
	MasterAlignmentID int // Index assigned at join time
	AlignmentID       int // Dense ID assigned after filtering
	ParentAlignmentID int // Parent spot for drift children, -1 otherwise

	AlignedPeakProperties []AlignmentChromPeakFeature
	PeakCharacter         PeakCharacter

	RepresentativeFileID   int
	MassCenter             float64
	TimesCenter            ChromXs
	HeightAverage          float64
	HeightMin              float64
	HeightMax              float64
	RelativeAmplitudeValue float64

	Name     string
	Formula  string
	Ontology string
	SMILES   string
	InChIKey string

	MspID       int
	MspMatch    *MatchResult
	TextDbID    int
	TextDbMatch *MatchResult

	IsBlankFiltered                 bool
	IsManuallyModifiedForAnnotation bool // Identification set by hand, never cleared by deduplication

	IsotopeTrackingParentID     int
	IsotopeTrackingWeightNumber int

	AlignmentDriftSpotFeatures []*AlignmentSpotProperty
}

// NewAlignmentSpot returns an empty spot with one absent slot per file.
func NewAlignmentSpot(masterID int, files []AnalysisFile) *AlignmentSpotProperty {
	peaks := make([]AlignmentChromPeakFeature, len(files))
	for i, f := range files {
		peaks[i] = NewAbsentPeak(f.ID, f.Name)
	}
	return &AlignmentSpotProperty{
		MasterAlignmentID:       masterID,
		AlignmentID:             -1,
		ParentAlignmentID:       -1,
		AlignedPeakProperties:   peaks,
		PeakCharacter:           NewPeakCharacter(),
		Name:                    UnknownName,
		MspID:                   -1,
		TextDbID:                -1,
		IsotopeTrackingParentID: -1,
	}
}

// UnknownName is the display name of a spot without identification.
const UnknownName = "Unknown"

// DetectedCount returns the number of files matched to a master peak.
func (s *AlignmentSpotProperty) DetectedCount() int {
	n := 0
	for i := range s.AlignedPeakProperties {
		if s.AlignedPeakProperties[i].IsPresent() {
			n++
		}
	}
	return n
}

// IsReferenceMatched reports whether either identification is a confirmed
// reference-library match.
func (s *AlignmentSpotProperty) IsReferenceMatched() bool {
	return (s.MspID >= 0 && s.MspMatch != nil && s.MspMatch.IsReferenceMatched) ||
		(s.TextDbID >= 0 && s.TextDbMatch != nil && s.TextDbMatch.IsReferenceMatched)
}

// IsAnnotationSuggested reports whether the spot carries a suggested but
// unconfirmed annotation.
func (s *AlignmentSpotProperty) IsAnnotationSuggested() bool {
	if s.IsReferenceMatched() {
		return false
	}
	return (s.MspID >= 0 && s.MspMatch != nil && s.MspMatch.IsAnnotationSuggested) ||
		(s.TextDbID >= 0 && s.TextDbMatch != nil && s.TextDbMatch.IsAnnotationSuggested)
}

// IsUnknown reports whether the spot has no identification at all.
func (s *AlignmentSpotProperty) IsUnknown() bool {
	return s.MspID < 0 && s.TextDbID < 0
}

// AlignmentResultContainer is the packed, read-only result of an alignment run.
type AlignmentResultContainer struct {
	RunID                   string
	Ionization              string
	IonMode                 IonMode
	AnalysisFiles           []AnalysisFile
	TotalAlignmentSpotCount int
	AlignmentSpotProperties []*AlignmentSpotProperty
	CreatedAt               time.Time
}
