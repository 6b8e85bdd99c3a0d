package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/msalign/pkg/config"
	"github.com/ChrisMcGann/msalign/pkg/writer/eicplot"
	"github.com/ChrisMcGann/msalign/pkg/writer/snippet"
)

func runPlot(cmd *cobra.Command, args []string) error {
	var names []string
	if plotProject != "" {
		project, err := config.LoadProject(plotProject)
		if err != nil {
			return err
		}
		for _, f := range project.Files {
			names = append(names, f.Name)
		}
	}

	r, err := snippet.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	spot, err := eicplot.FindSpot(r, spotID, parentID)
	if err != nil {
		return fmt.Errorf("spot %d: %w", spotID, err)
	}
	if err := eicplot.Save(spot, names, plotFile); err != nil {
		return err
	}

	fmt.Printf("Plotted %d chromatograms of spot %d to %s\n", len(spot.Peaks), spotID, plotFile)
	return nil
}
