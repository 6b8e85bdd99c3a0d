// Package config loads alignment parameters and project definitions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// ErrInvalidParameter is wrapped by every validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// SmoothingMethod selects the chromatogram smoothing filter.
type SmoothingMethod string

const (
	SmoothingSimpleMovingAverage         SmoothingMethod = "SimpleMovingAverage"
	SmoothingLinearWeightedMovingAverage SmoothingMethod = "LinearWeightedMovingAverage"
	SmoothingBinomialFilter              SmoothingMethod = "BinomialFilter"
	SmoothingSavitzkyGolayFilter         SmoothingMethod = "SavitzkyGolayFilter"
)

// BlankFiltering selects how sample intensity is compared with blanks.
type BlankFiltering string

const (
	SampleMaxOverBlankAve BlankFiltering = "SampleMaxOverBlankAve"
	SampleAveOverBlankAve BlankFiltering = "SampleAveOverBlankAve"
)

// CenterMethod selects how the expected peak position is derived for gap filling.
type CenterMethod string

const (
	CenterMean   CenterMethod = "mean"
	CenterMedian CenterMethod = "median"
)

// Parameter holds every setting of an alignment run. Fields omitted from a
// JSON file retain the values of DefaultParameter.
type Parameter struct {
	IonMode     string `json:"ion_mode"`
	Ionization  string `json:"ionization"`
	IonMobility bool   `json:"ion_mobility"`

	// Tolerances
	Ms1AlignmentTolerance           float64 `json:"ms1_alignment_tolerance"`
	RetentionTimeAlignmentTolerance float64 `json:"rt_alignment_tolerance"`
	DriftTimeAlignmentTolerance     float64 `json:"drift_alignment_tolerance"`
	CentroidMs1Tolerance            float64 `json:"centroid_ms1_tolerance"`

	// Join
	AlignmentReferenceFileID int  `json:"reference_file_id"`
	MergeMaster              bool `json:"merge_master"`

	// Gap filling
	SmoothingMethod            SmoothingMethod `json:"smoothing_method"`
	SmoothingLevel             int             `json:"smoothing_level"`
	IsForceInsertForGapFilling bool            `json:"force_insert"`
	CenterMethod               CenterMethod    `json:"center_method"`

	// Spot filters, percentages in [0, 100]
	PeakCountFilter            float64 `json:"peak_count_filter"`
	QcAtLeastFilter            bool    `json:"qc_at_least_filter"`
	NPercentDetectedInOneGroup float64 `json:"n_percent_detected_in_one_group"`

	// Blank filter
	IsRemoveFeatureBasedOnBlankPeakHeightFoldChange  bool           `json:"blank_filter"`
	BlankFiltering                                   BlankFiltering `json:"blank_filtering"`
	FoldChangeForBlankFiltering                      float64        `json:"blank_fold_change"`
	IsKeepRefMatchedMetaboliteFeatures               bool           `json:"keep_ref_matched"`
	IsKeepSuggestedMetaboliteFeatures                bool           `json:"keep_suggested"`
	IsKeepRemovableFeaturesAndAssignedTagForChecking bool           `json:"keep_removable_and_tag"`

	// Refinement
	OnlyReportTopHitInMspSearch    bool    `json:"only_top_hit_msp"`
	OnlyReportTopHitInTextDBSearch bool    `json:"only_top_hit_textdb"`
	CorrelationThreshold           float64 `json:"correlation_threshold"`
	CorrelationRtMargin            float64 `json:"correlation_rt_margin"`
	MinFilesForCorrelation         int     `json:"min_files_for_correlation"`

	// Isotope tracking
	TrackingIsotopeLabels   bool `json:"tracking_isotope_labels"`
	MaxIsotopeTrackingCount int  `json:"max_isotope_tracking_count"`

	NumThreads int `json:"threads"`
}

// DefaultParameter returns the settings used when no parameter file is given.
func DefaultParameter() *Parameter {
	return &Parameter{
		IonMode:                         "Positive",
		Ionization:                      "ESI",
		Ms1AlignmentTolerance:           0.015,
		RetentionTimeAlignmentTolerance: 0.1,
		DriftTimeAlignmentTolerance:     0.02,
		CentroidMs1Tolerance:            0.01,

		SmoothingMethod:            SmoothingLinearWeightedMovingAverage,
		SmoothingLevel:             3,
		IsForceInsertForGapFilling: true,
		CenterMethod:               CenterMean,

		BlankFiltering:                     SampleMaxOverBlankAve,
		FoldChangeForBlankFiltering:        5,
		IsKeepRefMatchedMetaboliteFeatures: true,

		IsKeepRemovableFeaturesAndAssignedTagForChecking: true,

		CorrelationThreshold:    0.95,
		CorrelationRtMargin:     0.06,
		MinFilesForCorrelation:  10,
		MaxIsotopeTrackingCount: 5,
		NumThreads:              runtime.NumCPU(),
	}
}

// LoadParameter loads a Parameter from a JSON file on top of the defaults.
func LoadParameter(path string) (*Parameter, error) {
	p := DefaultParameter()
	if err := readJSON(path, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return p, nil
}

// Validate checks ranges and enumerations.
func (p *Parameter) Validate() error {
	var errs []string

	if _, err := ParseIonMode(p.IonMode); err != nil {
		errs = append(errs, err.Error())
	}
	if p.Ms1AlignmentTolerance <= 0 {
		errs = append(errs, "ms1_alignment_tolerance must be positive")
	}
	if p.RetentionTimeAlignmentTolerance <= 0 {
		errs = append(errs, "rt_alignment_tolerance must be positive")
	}
	if p.IonMobility && p.DriftTimeAlignmentTolerance <= 0 {
		errs = append(errs, "drift_alignment_tolerance must be positive for ion mobility data")
	}
	if p.CentroidMs1Tolerance < 0 {
		errs = append(errs, "centroid_ms1_tolerance must be non-negative")
	}
	switch p.SmoothingMethod {
	case SmoothingSimpleMovingAverage, SmoothingLinearWeightedMovingAverage,
		SmoothingBinomialFilter, SmoothingSavitzkyGolayFilter:
	default:
		errs = append(errs, fmt.Sprintf("unknown smoothing_method %q", p.SmoothingMethod))
	}
	if p.SmoothingLevel < 0 {
		errs = append(errs, "smoothing_level must be non-negative")
	}
	if p.CenterMethod != CenterMean && p.CenterMethod != CenterMedian {
		errs = append(errs, fmt.Sprintf("unknown center_method %q", p.CenterMethod))
	}
	if p.PeakCountFilter < 0 || p.PeakCountFilter > 100 {
		errs = append(errs, "peak_count_filter must be within [0, 100]")
	}
	if p.NPercentDetectedInOneGroup < 0 || p.NPercentDetectedInOneGroup > 100 {
		errs = append(errs, "n_percent_detected_in_one_group must be within [0, 100]")
	}
	if p.BlankFiltering != SampleMaxOverBlankAve && p.BlankFiltering != SampleAveOverBlankAve {
		errs = append(errs, fmt.Sprintf("unknown blank_filtering %q", p.BlankFiltering))
	}
	if p.IsRemoveFeatureBasedOnBlankPeakHeightFoldChange && p.FoldChangeForBlankFiltering <= 0 {
		errs = append(errs, "blank_fold_change must be positive")
	}
	if p.CorrelationThreshold < -1 || p.CorrelationThreshold > 1 {
		errs = append(errs, "correlation_threshold must be within [-1, 1]")
	}
	if p.MaxIsotopeTrackingCount < 0 {
		errs = append(errs, "max_isotope_tracking_count must be non-negative")
	}
	if p.NumThreads <= 0 {
		errs = append(errs, "threads must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(errs, "; "))
	}
	return nil
}

// Mode returns the parsed ion mode. Validate must have succeeded.
func (p *Parameter) Mode() core.IonMode {
	mode, _ := ParseIonMode(p.IonMode)
	return mode
}

// ParseIonMode accepts "Positive"/"Negative" and the +/- shorthands.
func ParseIonMode(s string) (core.IonMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "+":
		return core.IonModePositive, nil
	case "negative", "neg", "-":
		return core.IonModeNegative, nil
	default:
		return core.IonModePositive, fmt.Errorf("unknown ion_mode %q", s)
	}
}

// readJSON validates the file path and size, then decodes it into v.
func readJSON(path string, v interface{}) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 4 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}
