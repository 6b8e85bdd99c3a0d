// Package eicplot renders the chromatogram snippets of an alignment spot as an image.
package eicplot

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/writer/snippet"
)

// ErrSpotNotFound is returned by FindSpot when no record matches.
var ErrSpotNotFound = errors.New("spot not found in snippet file")

// FindSpot scans r for the spot with alignmentID. For drift spots parentID
// is the parent's AlignmentID; pass -1 for a parent spot.
func FindSpot(r *snippet.Reader, alignmentID, parentID int) (snippet.ChromatogramSpotInfo, error) {
	for {
		s, err := r.ReadSpot()
		if err == io.EOF {
			return snippet.ChromatogramSpotInfo{}, ErrSpotNotFound
		}
		if err != nil {
			return snippet.ChromatogramSpotInfo{}, err
		}
		if s.AlignmentID == alignmentID && s.ParentAlignmentID == parentID {
			return s, nil
		}
	}
}

func axisLabel(axis core.ChromXType) string {
	if axis == core.ChromXTypeDrift {
		return "Drift time (ms)"
	}
	return "Retention time (min)"
}

// New builds a plot with one line per file and a marker at each peak top.
// names labels the legend by file ID; missing names fall back to the ID.
func New(s snippet.ChromatogramSpotInfo, names []string) (*plot.Plot, error) {
	p := plot.New()
	if s.ParentAlignmentID >= 0 {
		p.Title.Text = fmt.Sprintf("Spot %d, drift spot %d", s.ParentAlignmentID, s.AlignmentID)
	} else {
		p.Title.Text = fmt.Sprintf("Spot %d", s.AlignmentID)
	}
	p.X.Label.Text = axisLabel(s.Axis)
	p.Y.Label.Text = "Intensity"

	for i, peak := range s.Peaks {
		if len(peak.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(peak.Points))
		top := plotter.XYs{{X: peak.Points[0].Time, Y: peak.Points[0].Intensity}}
		for j, pt := range peak.Points {
			pts[j] = plotter.XY{X: pt.Time, Y: pt.Intensity}
			if math.Abs(pt.Time-peak.Top) < math.Abs(top[0].X-peak.Top) {
				top[0] = pts[j]
			}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot file %d: %w", peak.FileID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)

		marker, err := plotter.NewScatter(top)
		if err != nil {
			return nil, fmt.Errorf("failed to plot file %d: %w", peak.FileID, err)
		}
		marker.GlyphStyle.Color = line.Color
		marker.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(marker)

		label := fmt.Sprintf("file %d", peak.FileID)
		if peak.FileID >= 0 && peak.FileID < len(names) {
			label = names[peak.FileID]
		}
		p.Legend.Add(label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders s to path. The image format follows the file extension.
func Save(s snippet.ChromatogramSpotInfo, names []string, path string) error {
	p, err := New(s, names)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
