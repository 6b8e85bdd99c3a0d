package sqlite

import (
	"database/sql"
	"fmt"
	"os"
)

// Summary holds headline counts of a result database.
type Summary struct {
	RunID        string
	CreationDate string
	IonMode      string
	FileCount    int
	SpotCount    int
	DriftSpots   int
	PeakGroups   int
	Links        int
	FilledSlots  int // slots written by gap filling
	FilledPeaks  int // filled slots where a peak was found
	BlankTagged  int
}

// ReadSummary opens a result database read-only and counts its contents.
func ReadSummary(path string) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	s := &Summary{}
	err = db.QueryRow(`SELECT RunId, CreationDate, IonMode, FileCount, SpotCount FROM AlignmentRun LIMIT 1`).
		Scan(&s.RunID, &s.CreationDate, &s.IonMode, &s.FileCount, &s.SpotCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&s.DriftSpots, `SELECT COUNT(*) FROM DriftSpot`},
		{&s.PeakGroups, `SELECT COUNT(DISTINCT PeakGroupId) FROM AlignmentSpot`},
		{&s.Links, `SELECT COUNT(*) FROM PeakLink`},
		{&s.FilledSlots, `SELECT COUNT(*) FROM AlignedPeak WHERE IsGapFilled`},
		{&s.FilledPeaks, `SELECT COUNT(*) FROM AlignedPeak WHERE IsGapFilled AND Mass > 0`},
		{&s.BlankTagged, `SELECT COUNT(*) FROM AlignmentSpot WHERE IsBlankFiltered`},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	return s, nil
}
