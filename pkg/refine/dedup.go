package refine

import (
	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Deduplicate keeps, for every library ID, only the best spot carrying it and
// clears the identification of the others. Best means highest match score,
// then highest average height, then the later spot. Manually annotated spots
// are never cleared.
func Deduplicate(spots []*core.AlignmentSpotProperty, byMsp, byTextDB bool) {
	if byMsp {
		dedupBy(spots,
			func(s *core.AlignmentSpotProperty) (int, *core.MatchResult) { return s.MspID, s.MspMatch },
			SetDefaultCompoundInformationInMspSearch)
	}
	if byTextDB {
		dedupBy(spots,
			func(s *core.AlignmentSpotProperty) (int, *core.MatchResult) { return s.TextDbID, s.TextDbMatch },
			SetDefaultCompoundInformationInTextSearch)
	}
}

func dedupBy(spots []*core.AlignmentSpotProperty, key func(*core.AlignmentSpotProperty) (int, *core.MatchResult), reset func(*core.AlignmentSpotProperty)) {
	best := make(map[int]*core.AlignmentSpotProperty)
	for _, s := range spots {
		id, match := key(s)
		if id < 0 {
			continue
		}
		cur, ok := best[id]
		if !ok {
			best[id] = s
			continue
		}
		_, curMatch := key(cur)
		score, curScore := scoreOf(match), scoreOf(curMatch)
		if score > curScore || (score == curScore && s.HeightAverage >= cur.HeightAverage) {
			best[id] = s
		}
	}

	for _, s := range spots {
		id, _ := key(s)
		if id < 0 || best[id] == s || s.IsManuallyModifiedForAnnotation {
			continue
		}
		reset(s)
	}
}

func scoreOf(m *core.MatchResult) float64 {
	if m == nil {
		return 0
	}
	return m.TotalScore
}

// SetDefaultCompoundInformationInMspSearch drops the MSP identification of s.
// The name falls back to the text-database hit, if any.
func SetDefaultCompoundInformationInMspSearch(s *core.AlignmentSpotProperty) {
	s.MspID = -1
	s.MspMatch = nil
	resetCompound(s, s.TextDbID, s.TextDbMatch)
}

// SetDefaultCompoundInformationInTextSearch drops the text-database
// identification of s. The name falls back to the MSP hit, if any.
func SetDefaultCompoundInformationInTextSearch(s *core.AlignmentSpotProperty) {
	s.TextDbID = -1
	s.TextDbMatch = nil
	resetCompound(s, s.MspID, s.MspMatch)
}

func resetCompound(s *core.AlignmentSpotProperty, otherID int, other *core.MatchResult) {
	s.Formula = ""
	s.Ontology = ""
	s.SMILES = ""
	s.InChIKey = ""
	if otherID >= 0 && other != nil {
		s.Name = other.Name
	} else {
		s.Name = core.UnknownName
	}
}
