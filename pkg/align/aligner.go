// Package align drives a whole alignment run: join, filter, gap fill, refine,
// pack, isotope tracking and chromatogram snippet export.
package align

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ChrisMcGann/msalign/internal/monitoring"
	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/filter"
	"github.com/ChrisMcGann/msalign/pkg/join"
	"github.com/ChrisMcGann/msalign/pkg/refine"
)

// DataProvider loads the raw MS1 scans of one analysis file.
type DataProvider interface {
	LoadMs1Spectrums(ctx context.Context) ([]core.RawSpectrum, error)
}

// ProviderFactory opens the raw data of an analysis file.
type ProviderFactory interface {
	Create(file core.AnalysisFile) (DataProvider, error)
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(file core.AnalysisFile) (DataProvider, error)

func (f ProviderFactoryFunc) Create(file core.AnalysisFile) (DataProvider, error) {
	return f(file)
}

// Joiner builds the initial spots from per-file detections.
type Joiner interface {
	Join(ctx context.Context, files []core.AnalysisFile, referenceID int, accessor join.Accessor) ([]*core.AlignmentSpotProperty, error)
}

// Aligner holds everything an alignment run needs.
type Aligner struct {
	Param     *config.Parameter
	Files     []core.AnalysisFile
	Accessor  join.Accessor
	Providers ProviderFactory

	// SnippetPath receives the chromatogram of every spot in every file when set.
	SnippetPath string
	// IonMobility also aligns and gap fills drift-time children.
	IonMobility bool
}

// New creates an aligner. IonMobility follows param.
func New(param *config.Parameter, files []core.AnalysisFile, accessor join.Accessor, providers ProviderFactory) *Aligner {
	return &Aligner{
		Param:       param,
		Files:       files,
		Accessor:    accessor,
		Providers:   providers,
		IonMobility: param.IonMobility,
	}
}

func (a *Aligner) joiner() Joiner {
	lc := join.LcComparer{MzTol: a.Param.Ms1AlignmentTolerance, RtTol: a.Param.RetentionTimeAlignmentTolerance}
	if a.IonMobility {
		im := join.ImComparer{MzTol: a.Param.Ms1AlignmentTolerance, DriftTol: a.Param.DriftTimeAlignmentTolerance}
		return join.NewImJoiner(lc, im, a.Param.MergeMaster)
	}
	return join.NewPeakJoiner(lc, a.Param.MergeMaster)
}

func (a *Aligner) refiner() *refine.Refiner {
	if a.IonMobility {
		return refine.NewImRefiner(a.Param, a.Files)
	}
	return refine.NewLcRefiner(a.Param, a.Files)
}

// Align runs the pipeline and returns the packed result.
func (a *Aligner) Align(ctx context.Context) (*core.AlignmentResultContainer, error) {
	spots, err := a.joiner().Join(ctx, a.Files, a.Param.AlignmentReferenceFileID, a.Accessor)
	if err != nil {
		return nil, fmt.Errorf("failed to join peaks: %w", err)
	}
	monitoring.Logf("align: %d spots joined from %d files", len(spots), len(a.Files))

	spots = filter.Apply(filter.FromParameter(a.Param, a.Files), spots)
	monitoring.Logf("align: %d spots left after filtering", len(spots))

	var stageDir string
	if a.SnippetPath != "" {
		stageDir, err = os.MkdirTemp("", "msalign-stage-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
		defer os.RemoveAll(stageDir)
	}

	results, err := a.collect(ctx, spots, stageDir)
	if err != nil {
		return nil, err
	}
	apply(spots, results)
	keys := stageKeys(spots)

	for _, s := range spots {
		SetRepresentativeProperties(s)
		for _, c := range s.AlignmentDriftSpotFeatures {
			SetRepresentativeProperties(c)
		}
	}

	refined, idMapping := a.refiner().Refine(spots)
	monitoring.Logf("align: %d spots after refinement", len(refined))

	container := Pack(refined, a.Files, a.Param)

	if a.Param.TrackingIsotopeLabels {
		TrackIsotopes(refined, a.Param.Ms1AlignmentTolerance, a.Param.RetentionTimeAlignmentTolerance, a.Param.MaxIsotopeTrackingCount)
	}

	if a.SnippetPath != "" {
		if err := a.serialize(ctx, refined, idMapping, keys, stageDir); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// Pack wraps the refined spots into a result container and sets their
// relative amplitudes.
func Pack(spots []*core.AlignmentSpotProperty, files []core.AnalysisFile, param *config.Parameter) *core.AlignmentResultContainer {
	SetRelativeAmplitudes(spots)
	return &core.AlignmentResultContainer{
		RunID:                   uuid.NewString(),
		Ionization:              param.Ionization,
		IonMode:                 param.Mode(),
		AnalysisFiles:           files,
		TotalAlignmentSpotCount: len(spots),
		AlignmentSpotProperties: spots,
		CreatedAt:               time.Now().UTC(),
	}
}
