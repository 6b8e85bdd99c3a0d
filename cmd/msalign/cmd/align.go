package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/msalign/internal/monitoring"
	"github.com/ChrisMcGann/msalign/pkg/align"
	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/reader/peaktable"
	"github.com/ChrisMcGann/msalign/pkg/reader/spectra"
	"github.com/ChrisMcGann/msalign/pkg/writer/sqlite"
)

func runAlign(cmd *cobra.Command, args []string) error {
	if !verbose {
		monitoring.SetLogger(nil)
	}

	project, err := config.LoadProject(projectFile)
	if err != nil {
		return err
	}
	if err := project.CheckFiles(); err != nil {
		return err
	}

	param := config.DefaultParameter()
	if paramFile != "" {
		if param, err = config.LoadParameter(paramFile); err != nil {
			return err
		}
	}

	// Flags override the parameter file
	if threads > 0 {
		param.NumThreads = threads
	}
	if cmd.Flags().Changed("force-insert") {
		param.IsForceInsertForGapFilling = forceInsert
	}
	if err := param.Validate(); err != nil {
		return err
	}

	adducts, err := loadAdducts()
	if err != nil {
		return err
	}

	fmt.Printf("Aligning %d analysis files from %s...\n", len(project.Files), projectFile)
	fmt.Printf("Ion mode: %s\n", param.IonMode)
	fmt.Printf("Ion mobility: %t\n", param.IonMobility)
	fmt.Printf("Reference file: %d\n", param.AlignmentReferenceFileID)
	fmt.Printf("Threads: %d\n", param.NumThreads)

	providers := align.ProviderFactoryFunc(func(f core.AnalysisFile) (align.DataProvider, error) {
		return spectra.NewFileProvider(f.SpectraPath), nil
	})
	aligner := align.New(param, project.Files, peaktable.NewAccessor(adducts), providers)
	aligner.SnippetPath = eicFile

	start := time.Now()
	result, err := aligner.Align(cmd.Context())
	if err != nil {
		return err
	}

	writer, err := sqlite.NewWriter(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteResult(result); err != nil {
		return err
	}

	var filled, drift int
	for _, spot := range result.AlignmentSpotProperties {
		drift += len(spot.AlignmentDriftSpotFeatures)
		for i := range spot.AlignedPeakProperties {
			if spot.AlignedPeakProperties[i].IsGapFilled() {
				filled++
			}
		}
	}

	fmt.Printf("\nAlignment complete in %s:\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Alignment spots: %d\n", result.TotalAlignmentSpotCount)
	if param.IonMobility {
		fmt.Printf("  Drift spots: %d\n", drift)
	}
	fmt.Printf("  Gap filled slots: %d\n", filled)
	fmt.Printf("  Output: %s\n", outputFile)
	if eicFile != "" {
		fmt.Printf("  Chromatograms: %s\n", eicFile)
	}
	return nil
}

// loadAdducts returns the default adduct table extended by --adducts.
func loadAdducts() (*core.AdductDatabase, error) {
	db := core.DefaultAdductDatabase()
	if adductCSV == "" {
		return db, nil
	}

	f, err := os.Open(adductCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open adduct CSV: %w", err)
	}
	defer f.Close()

	if err := db.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load adduct CSV: %w", err)
	}
	fmt.Printf("Loaded %d adduct definitions\n", len(db.Names(core.IonModePositive))+len(db.Names(core.IonModeNegative)))
	return db, nil
}
