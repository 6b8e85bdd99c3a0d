// Package sqlite provides SQLite database writing for alignment results
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Date format for AlignmentRun (ISO 8601)
const runDateFormat = time.RFC3339

// Writer handles writing alignment results to SQLite database files
type Writer struct {
	db         *sql.DB
	outputPath string
	runStmt    *sql.Stmt
	fileStmt   *sql.Stmt
	spotStmt   *sql.Stmt
	peakStmt   *sql.Stmt
	linkStmt   *sql.Stmt
	driftStmt  *sql.Stmt
}

// NewWriter creates a new SQLite writer. An existing file at outputPath is replaced.
func NewWriter(outputPath string) (*Writer, error) {
	if err := os.Remove(outputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to replace database: %w", err)
	}

	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		w.closeStatements()
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS AlignmentRun (
		RunId TEXT PRIMARY KEY,
		Ionization TEXT,
		IonMode TEXT,
		FileCount INTEGER,
		SpotCount INTEGER,
		CreationDate TEXT
	);

	CREATE TABLE IF NOT EXISTS AnalysisFile (
		FileId INTEGER PRIMARY KEY,
		Name TEXT,
		Class TEXT,
		Type TEXT
	);

	CREATE TABLE IF NOT EXISTS AlignmentSpot (
		AlignmentId INTEGER PRIMARY KEY,
		MasterAlignmentId INTEGER,
		Name TEXT,
		Formula TEXT,
		Mass DOUBLE,
		RetentionTime DOUBLE,
		RepresentativeFileId INTEGER,
		HeightAverage DOUBLE,
		HeightMin DOUBLE,
		HeightMax DOUBLE,
		RelativeAmplitude DOUBLE,
		Charge INTEGER,
		Adduct TEXT,
		PeakGroupId INTEGER,
		IsotopeWeightNumber INTEGER,
		IsotopeParentId INTEGER,
		IsotopeTrackingParentId INTEGER,
		IsotopeTrackingWeightNumber INTEGER,
		MspId INTEGER,
		MspScore DOUBLE,
		TextDbId INTEGER,
		TextDbScore DOUBLE,
		IsBlankFiltered BOOL,
		DetectedCount INTEGER,
		blobHeights BLOB
	);

	CREATE TABLE IF NOT EXISTS DriftSpot (
		ParentAlignmentId INTEGER REFERENCES AlignmentSpot(AlignmentId),
		AlignmentId INTEGER,
		MasterAlignmentId INTEGER,
		Mass DOUBLE,
		DriftTime DOUBLE,
		HeightAverage DOUBLE,
		HeightMax DOUBLE,
		Charge INTEGER,
		Adduct TEXT,
		PeakGroupId INTEGER,
		DetectedCount INTEGER,
		blobHeights BLOB,
		PRIMARY KEY (ParentAlignmentId, AlignmentId)
	);

	CREATE TABLE IF NOT EXISTS AlignedPeak (
		AlignmentId INTEGER REFERENCES AlignmentSpot(AlignmentId),
		DriftAlignmentId INTEGER,
		FileId INTEGER REFERENCES AnalysisFile(FileId),
		PeakId INTEGER,
		MasterPeakId INTEGER,
		Mass DOUBLE,
		TimeTop DOUBLE,
		TimeLeft DOUBLE,
		TimeRight DOUBLE,
		Height DOUBLE,
		AreaAboveZero DOUBLE,
		AreaAboveBaseline DOUBLE,
		IsGapFilled BOOL,
		PRIMARY KEY (AlignmentId, DriftAlignmentId, FileId)
	);

	CREATE TABLE IF NOT EXISTS PeakLink (
		AlignmentId INTEGER REFERENCES AlignmentSpot(AlignmentId),
		LinkedAlignmentId INTEGER,
		Character TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	stmts := []struct {
		dst   **sql.Stmt
		name  string
		query string
	}{
		{&w.runStmt, "run", `
			INSERT INTO AlignmentRun (RunId, Ionization, IonMode, FileCount, SpotCount, CreationDate)
			VALUES (?, ?, ?, ?, ?, ?)`},
		{&w.fileStmt, "file", `
			INSERT INTO AnalysisFile (FileId, Name, Class, Type) VALUES (?, ?, ?, ?)`},
		{&w.spotStmt, "spot", `
			INSERT INTO AlignmentSpot (
				AlignmentId, MasterAlignmentId, Name, Formula, Mass, RetentionTime,
				RepresentativeFileId, HeightAverage, HeightMin, HeightMax, RelativeAmplitude,
				Charge, Adduct, PeakGroupId, IsotopeWeightNumber, IsotopeParentId,
				IsotopeTrackingParentId, IsotopeTrackingWeightNumber,
				MspId, MspScore, TextDbId, TextDbScore, IsBlankFiltered, DetectedCount, blobHeights
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.driftStmt, "drift spot", `
			INSERT INTO DriftSpot (
				ParentAlignmentId, AlignmentId, MasterAlignmentId, Mass, DriftTime,
				HeightAverage, HeightMax, Charge, Adduct, PeakGroupId, DetectedCount, blobHeights
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.peakStmt, "peak", `
			INSERT INTO AlignedPeak (
				AlignmentId, DriftAlignmentId, FileId, PeakId, MasterPeakId, Mass,
				TimeTop, TimeLeft, TimeRight, Height, AreaAboveZero, AreaAboveBaseline, IsGapFilled
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.linkStmt, "link", `
			INSERT INTO PeakLink (AlignmentId, LinkedAlignmentId, Character) VALUES (?, ?, ?)`},
	}

	for _, s := range stmts {
		stmt, err := w.db.Prepare(s.query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s statement: %w", s.name, err)
		}
		*s.dst = stmt
	}
	return nil
}

// WriteResult writes a whole alignment result in one transaction
func (w *Writer) WriteResult(c *core.AlignmentResultContainer) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := w.writeResult(tx, c); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}
	return nil
}

func (w *Writer) writeResult(tx *sql.Tx, c *core.AlignmentResultContainer) error {
	_, err := tx.Stmt(w.runStmt).Exec(
		c.RunID,
		c.Ionization,
		c.IonMode.String(),
		len(c.AnalysisFiles),
		c.TotalAlignmentSpotCount,
		c.CreatedAt.Format(runDateFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	fileStmt := tx.Stmt(w.fileStmt)
	for _, f := range c.AnalysisFiles {
		if _, err := fileStmt.Exec(f.ID, f.Name, f.Class, f.Type.String()); err != nil {
			return fmt.Errorf("failed to insert analysis file %s: %w", f.Name, err)
		}
	}

	for _, spot := range c.AlignmentSpotProperties {
		if err := w.writeSpot(tx, spot); err != nil {
			return err
		}
	}
	return nil
}

// writeSpot writes a spot with its per-file peaks, links and drift children
func (w *Writer) writeSpot(tx *sql.Tx, spot *core.AlignmentSpotProperty) error {
	var mspScore, textScore interface{}
	if spot.MspMatch != nil {
		mspScore = spot.MspMatch.TotalScore
	}
	if spot.TextDbMatch != nil {
		textScore = spot.TextDbMatch.TotalScore
	}

	pc := spot.PeakCharacter
	heights := encodeHeights(spot.AlignedPeakProperties)
	_, err := tx.Stmt(w.spotStmt).Exec(
		spot.AlignmentID,                 // AlignmentId
		spot.MasterAlignmentID,           // MasterAlignmentId
		spot.Name,                        // Name
		spot.Formula,                     // Formula
		spot.MassCenter,                  // Mass
		spot.TimesCenter.RT,              // RetentionTime
		spot.RepresentativeFileID,        // RepresentativeFileId
		spot.HeightAverage,               // HeightAverage
		spot.HeightMin,                   // HeightMin
		spot.HeightMax,                   // HeightMax
		spot.RelativeAmplitudeValue,      // RelativeAmplitude
		pc.Charge,                        // Charge
		pc.AdductName,                    // Adduct
		pc.PeakGroupID,                   // PeakGroupId
		pc.IsotopeWeightNumber,           // IsotopeWeightNumber
		pc.IsotopeParentPeakID,           // IsotopeParentId
		spot.IsotopeTrackingParentID,     // IsotopeTrackingParentId
		spot.IsotopeTrackingWeightNumber, // IsotopeTrackingWeightNumber
		spot.MspID,                       // MspId
		mspScore,                         // MspScore
		spot.TextDbID,                    // TextDbId
		textScore,                        // TextDbScore
		spot.IsBlankFiltered,             // IsBlankFiltered
		spot.DetectedCount(),             // DetectedCount
		heights,                          // blobHeights
	)
	if err != nil {
		return fmt.Errorf("failed to insert spot %d: %w", spot.AlignmentID, err)
	}

	if err := w.writePeaks(tx, spot.AlignmentID, -1, spot.AlignedPeakProperties); err != nil {
		return err
	}

	linkStmt := tx.Stmt(w.linkStmt)
	for _, l := range pc.PeakLinks {
		if _, err := linkStmt.Exec(spot.AlignmentID, l.LinkedPeakID, l.Character.String()); err != nil {
			return fmt.Errorf("failed to insert link of spot %d: %w", spot.AlignmentID, err)
		}
	}

	driftStmt := tx.Stmt(w.driftStmt)
	for _, c := range spot.AlignmentDriftSpotFeatures {
		_, err := driftStmt.Exec(
			spot.AlignmentID,
			c.AlignmentID,
			c.MasterAlignmentID,
			c.MassCenter,
			c.TimesCenter.Drift,
			c.HeightAverage,
			c.HeightMax,
			c.PeakCharacter.Charge,
			c.PeakCharacter.AdductName,
			c.PeakCharacter.PeakGroupID,
			c.DetectedCount(),
			encodeHeights(c.AlignedPeakProperties),
		)
		if err != nil {
			return fmt.Errorf("failed to insert drift spot %d of spot %d: %w", c.AlignmentID, spot.AlignmentID, err)
		}
		if err := w.writePeaks(tx, spot.AlignmentID, c.AlignmentID, c.AlignedPeakProperties); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writePeaks(tx *sql.Tx, alignmentID, driftID int, peaks []core.AlignmentChromPeakFeature) error {
	stmt := tx.Stmt(w.peakStmt)
	for _, p := range peaks {
		_, err := stmt.Exec(
			alignmentID,
			driftID,
			p.FileID,
			p.PeakID,
			p.MasterPeakID,
			p.Mass,
			p.ChromXsTop.Value(),
			p.ChromXsLeft.Value(),
			p.ChromXsRight.Value(),
			p.PeakHeightTop,
			p.PeakAreaAboveZero,
			p.PeakAreaAboveBaseline,
			p.IsGapFilled(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert peak of file %d in spot %d: %w", p.FileID, alignmentID, err)
		}
	}
	return nil
}

// encodeHeights encodes per-file heights as a little-endian float64 blob
func encodeHeights(peaks []core.AlignmentChromPeakFeature) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, p := range peaks {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(p.PeakHeightTop))
	}
	return buf
}

// DecodeHeights reverses the blobHeights encoding.
func DecodeHeights(blob []byte) []float64 {
	heights := make([]float64, len(blob)/8)
	for i := range heights {
		heights[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return heights
}

func (w *Writer) closeStatements() {
	for _, stmt := range []*sql.Stmt{w.runStmt, w.fileStmt, w.spotStmt, w.driftStmt, w.peakStmt, w.linkStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// Finalize closes prepared statements and the database
func (w *Writer) Finalize() error {
	w.closeStatements()

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
