// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/writer/sqlite"
)

var (
	// Flags for align command
	projectFile string
	paramFile   string
	outputFile  string
	eicFile     string
	adductCSV   string
	threads     int
	forceInsert bool
	verbose     bool

	// Flags for plot command
	spotID      int
	parentID    int
	plotFile    string
	plotProject string
)

var rootCmd = &cobra.Command{
	Use:   "msalign",
	Short: "msalign - Cross-sample peak alignment tool",
	Long: `msalign aligns chromatographic peaks detected independently in many
LC-MS or LC-IM-MS analysis files into one table of alignment spots.

Per-file detections are joined against a reference file, filtered, gap filled
from the raw spectra, deduplicated and linked, then written to a SQLite database:
- one spot per putative compound with one slot per analysis file
- drift-time children for ion mobility data
- optional chromatogram snippets for every spot and file`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(alignCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(plotCmd)

	// Align command flags
	alignCmd.Flags().StringVarP(&projectFile, "project", "p", "", "Project file listing the analysis files (required)")
	alignCmd.Flags().StringVar(&paramFile, "param", "", "Alignment parameter file (defaults if not specified)")
	alignCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (required)")
	alignCmd.Flags().StringVar(&eicFile, "eic", "", "Write chromatogram snippets to this file")
	alignCmd.Flags().StringVar(&adductCSV, "adducts", "", "Path to additional adduct definitions CSV")
	alignCmd.Flags().IntVar(&threads, "threads", 0, "Number of gap filling workers (0 = parameter file value)")
	alignCmd.Flags().BoolVar(&forceInsert, "force-insert", false, "Keep gap filled slots even when no local maximum is found")
	alignCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline diagnostics to stderr")

	alignCmd.MarkFlagRequired("project")
	alignCmd.MarkFlagRequired("out")

	// Plot command flags
	plotCmd.Flags().IntVar(&spotID, "spot", 0, "Alignment ID of the spot (required)")
	plotCmd.Flags().IntVar(&parentID, "parent", -1, "Alignment ID of the parent spot for drift spots")
	plotCmd.Flags().StringVarP(&plotFile, "out", "o", "", "Output image file (required)")
	plotCmd.Flags().StringVar(&plotProject, "project", "", "Project file used to label files by name")

	plotCmd.MarkFlagRequired("spot")
	plotCmd.MarkFlagRequired("out")
}

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align peaks across the analysis files of a project",
	Long: `Align the peak tables of every analysis file in a project and write the
alignment result to a SQLite database.

Examples:
  # Align with default parameters
  msalign align --project project.json --out result.db

  # Align with a parameter file, 8 workers and chromatogram export
  msalign align --project project.json --param param.json --out result.db --eic result.eic --threads 8`,
	RunE: runAlign,
}

var validateCmd = &cobra.Command{
	Use:   "validate [project]",
	Short: "Validate a project file and its inputs",
	Long:  `Validate that a project file is well formed and that every spectra and peak table it references exists.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := config.LoadProject(args[0])
		if err != nil {
			return err
		}
		if err := project.CheckFiles(); err != nil {
			return err
		}
		fmt.Printf("Project %s is valid: %d analysis files\n", args[0], len(project.Files))
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize an alignment result database",
	Long:  `Print summary statistics about an alignment result including spot, group and gap filled slot counts.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sqlite.ReadSummary(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Run:              %s (%s)\n", s.RunID, s.CreationDate)
		fmt.Printf("Ion mode:         %s\n", s.IonMode)
		fmt.Printf("Analysis files:   %d\n", s.FileCount)
		fmt.Printf("Alignment spots:  %d\n", s.SpotCount)
		fmt.Printf("Drift spots:      %d\n", s.DriftSpots)
		fmt.Printf("Peak groups:      %d\n", s.PeakGroups)
		fmt.Printf("Peak links:       %d\n", s.Links)
		fmt.Printf("Gap filled slots: %d (%d with a peak)\n", s.FilledSlots, s.FilledPeaks)
		fmt.Printf("Blank tagged:     %d\n", s.BlankTagged)
		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot [eic file]",
	Short: "Plot the chromatograms of one alignment spot",
	Long: `Render the chromatogram snippets of one alignment spot, as written by
align --eic, to an image. The format follows the output extension (png, svg, pdf).

Examples:
  # Plot spot 12
  msalign plot result.eic --spot 12 --out spot12.png

  # Plot drift spot 2 of spot 12 with file names from the project
  msalign plot result.eic --spot 2 --parent 12 --project project.json --out spot12_2.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}
