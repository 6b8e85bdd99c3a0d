package core

import (
	"fmt"
	"math"
	"strings"
)

// Sentinel peak IDs for alignment slots.
const (
	PeakIDAbsent    = -1 // No detection in this file before gap filling
	PeakIDGapFilled = -2 // Slot populated (or emptied) by gap filling
)

// PeakLinkFeature is the relation carried by a LinkedPeakFeature.
type PeakLinkFeature int

const (
	LinkAdduct PeakLinkFeature = iota
	LinkIsotope
	LinkChromSimilar
	LinkCorrelSimilar
	LinkFoundInUpperMsMs
	LinkSameFeature
)

var linkNames = map[PeakLinkFeature]string{
	LinkAdduct:           "Adduct",
	LinkIsotope:          "Isotope",
	LinkChromSimilar:     "ChromSimilar",
	LinkCorrelSimilar:    "CorrelSimilar",
	LinkFoundInUpperMsMs: "FoundInUpperMsMs",
	LinkSameFeature:      "SameFeature",
}

func (f PeakLinkFeature) String() string {
	if name, ok := linkNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PeakLinkFeature(%d)", int(f))
}

// IsStrong reports whether the relation is evidence that both features come
// from the same compound. Only strong links join peak groups.
func (f PeakLinkFeature) IsStrong() bool {
	switch f {
	case LinkAdduct, LinkIsotope, LinkSameFeature:
		return true
	default:
		return false
	}
}

// ParsePeakLinkFeature converts a relation name (case-insensitive) to its enum value.
func ParsePeakLinkFeature(s string) (PeakLinkFeature, error) {
	for f, name := range linkNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown peak link feature '%s'", s)
}

// LinkedPeakFeature is a directed annotation edge to another peak or spot.
type LinkedPeakFeature struct {
	LinkedPeakID int
	Character    PeakLinkFeature
}

// PeakCharacter groups the charge, adduct and link annotations of a peak or spot.
type PeakCharacter struct {
	Charge              int
	AdductName          string
	PeakGroupID         int
	IsotopeWeightNumber int
	IsotopeParentPeakID int
	IsLinked            bool
	PeakLinks           []LinkedPeakFeature
}

// NewPeakCharacter returns a character with unassigned group and isotope parent.
func NewPeakCharacter() PeakCharacter {
	return PeakCharacter{
		Charge:              1,
		PeakGroupID:         -1,
		IsotopeParentPeakID: -1,
	}
}

// HasLink reports whether a link to id with the given relation already exists.
func (pc *PeakCharacter) HasLink(id int, character PeakLinkFeature) bool {
	for _, l := range pc.PeakLinks {
		if l.LinkedPeakID == id && l.Character == character {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the link slice.
func (pc PeakCharacter) Clone() PeakCharacter {
	if pc.PeakLinks != nil {
		links := make([]LinkedPeakFeature, len(pc.PeakLinks))
		copy(links, pc.PeakLinks)
		pc.PeakLinks = links
	}
	return pc
}

// MatchResult is an identification result produced by an external annotator.
type MatchResult struct {
	Name                  string
	TotalScore            float64
	IsReferenceMatched    bool
	IsAnnotationSuggested bool
}

// ChromatogramPeakFeature is a peak detected in one analysis file by an
// upstream peak picker. Drift children carry ParentPeakID of their RT peak.
type ChromatogramPeakFeature struct {
	PeakID            int
	ParentPeakID      int
	Mass              float64
	ChromXsTop        ChromXs
	ChromXsLeft       ChromXs
	ChromXsRight      ChromXs
	PeakHeightTop     float64
	PeakAreaAboveZero float64
	PeakCharacter     PeakCharacter

	MspID       int
	MspMatch    *MatchResult
	TextDbID    int
	TextDbMatch *MatchResult

	DriftChromFeatures []*ChromatogramPeakFeature
}

// Validate checks that a detection has usable coordinates.
func (f *ChromatogramPeakFeature) Validate() error {
	var errs []string

	if f.PeakID < 0 {
		errs = append(errs, "peak id must be non-negative")
	}
	if math.IsNaN(f.Mass) || f.Mass <= 0 {
		errs = append(errs, "m/z must be positive")
	}
	if math.IsNaN(f.PeakHeightTop) || f.PeakHeightTop < 0 {
		errs = append(errs, "height must be non-negative")
	}
	if f.ChromXsLeft.Value() > f.ChromXsTop.Value() || f.ChromXsTop.Value() > f.ChromXsRight.Value() {
		errs = append(errs, "peak top must lie between left and right edges")
	}
	if f.PeakCharacter.Charge < 0 {
		errs = append(errs, "charge must be non-negative")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("Peak %d", f.PeakID),
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// AlignmentChromPeakFeature is the per-file slot of an alignment spot.
type AlignmentChromPeakFeature struct {
	FileID       int
	FileName     string
	PeakID       int
	MasterPeakID int

	Mass             float64
	ChromXsTop       ChromXs
	ChromXsLeft      ChromXs
	ChromXsRight     ChromXs
	ChromScanIDTop   int
	ChromScanIDLeft  int
	ChromScanIDRight int

	PeakHeightTop         float64
	PeakHeightLeft        float64
	PeakHeightRight       float64
	PeakAreaAboveZero     float64
	PeakAreaAboveBaseline float64

	PeakCharacter PeakCharacter

	MspID       int
	MspMatch    *MatchResult
	TextDbID    int
	TextDbMatch *MatchResult
}

// NewAbsentPeak returns the slot used for a file without a matched detection.
func NewAbsentPeak(fileID int, fileName string) AlignmentChromPeakFeature {
	return AlignmentChromPeakFeature{
		FileID:           fileID,
		FileName:         fileName,
		PeakID:           PeakIDAbsent,
		MasterPeakID:     -1,
		ChromScanIDTop:   -1,
		ChromScanIDLeft:  -1,
		ChromScanIDRight: -1,
		PeakCharacter:    NewPeakCharacter(),
		MspID:            -1,
		TextDbID:         -1,
	}
}

// NewDetectedPeak converts a detection into the slot for fileID.
func NewDetectedPeak(f *ChromatogramPeakFeature, fileID int, fileName string, masterID int) AlignmentChromPeakFeature {
	return AlignmentChromPeakFeature{
		FileID:            fileID,
		FileName:          fileName,
		PeakID:            f.PeakID,
		MasterPeakID:      masterID,
		Mass:              f.Mass,
		ChromXsTop:        f.ChromXsTop,
		ChromXsLeft:       f.ChromXsLeft,
		ChromXsRight:      f.ChromXsRight,
		ChromScanIDTop:    -1,
		ChromScanIDLeft:   -1,
		ChromScanIDRight:  -1,
		PeakHeightTop:     f.PeakHeightTop,
		PeakAreaAboveZero: f.PeakAreaAboveZero,
		PeakCharacter:     f.PeakCharacter.Clone(),
		MspID:             f.MspID,
		MspMatch:          f.MspMatch,
		TextDbID:          f.TextDbID,
		TextDbMatch:       f.TextDbMatch,
	}
}

// IsPresent reports whether the slot was matched to a master peak.
func (p *AlignmentChromPeakFeature) IsPresent() bool {
	return p.MasterPeakID >= 0
}

// IsDetected reports whether the slot holds an original detection.
func (p *AlignmentChromPeakFeature) IsDetected() bool {
	return p.PeakID >= 0
}

// IsGapFilled reports whether the slot was written by gap filling.
func (p *AlignmentChromPeakFeature) IsGapFilled() bool {
	return p.PeakID == PeakIDGapFilled
}
