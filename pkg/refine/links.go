package refine

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// RegisterLinks records relation between a and b on both spots, addressed by
// AlignmentID. Existing edges are not duplicated and self links are ignored.
func RegisterLinks(a, b *core.AlignmentSpotProperty, relation core.PeakLinkFeature) {
	if a == b || a.AlignmentID == b.AlignmentID {
		return
	}
	if !a.PeakCharacter.HasLink(b.AlignmentID, relation) {
		a.PeakCharacter.PeakLinks = append(a.PeakCharacter.PeakLinks,
			core.LinkedPeakFeature{LinkedPeakID: b.AlignmentID, Character: relation})
	}
	if !b.PeakCharacter.HasLink(a.AlignmentID, relation) {
		b.PeakCharacter.PeakLinks = append(b.PeakCharacter.PeakLinks,
			core.LinkedPeakFeature{LinkedPeakID: a.AlignmentID, Character: relation})
	}
	a.PeakCharacter.IsLinked = true
	b.PeakCharacter.IsLinked = true
}

// AssignLinksByIonAbundanceCorrelations links spots within rtMargin of each
// other whose heights across sample files correlate at threshold or above.
// Nothing is linked with fewer than minFiles sample files.
func AssignLinksByIonAbundanceCorrelations(spots []*core.AlignmentSpotProperty, files []core.AnalysisFile, threshold, rtMargin float64, minFiles int) {
	var sampleIDs []int
	for _, f := range files {
		if f.Type == core.FileTypeSample {
			sampleIDs = append(sampleIDs, f.ID)
		}
	}
	if len(sampleIDs) == 0 || len(sampleIDs) < minFiles {
		return
	}

	heights := make(map[*core.AlignmentSpotProperty][]float64, len(spots))
	for _, s := range spots {
		v := make([]float64, len(sampleIDs))
		for i, id := range sampleIDs {
			v[i] = s.AlignedPeakProperties[id].PeakHeightTop
		}
		heights[s] = v
	}

	byRT := slices.Clone(spots)
	slices.SortStableFunc(byRT, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(a.TimesCenter.RT, b.TimesCenter.RT)
	})
	for i, a := range byRT {
		for _, b := range byRT[i+1:] {
			if b.TimesCenter.RT-a.TimesCenter.RT > rtMargin {
				break
			}
			// NaN for constant vectors fails the comparison
			if stat.Correlation(heights[a], heights[b], nil) >= threshold {
				RegisterLinks(a, b, core.LinkCorrelSimilar)
			}
		}
	}
}

// peakIndex finds the spot holding a detection of a file.
type peakIndex map[[2]int]*core.AlignmentSpotProperty

func newPeakIndex(spots []*core.AlignmentSpotProperty) peakIndex {
	idx := make(peakIndex)
	for _, s := range spots {
		for _, p := range s.AlignedPeakProperties {
			if p.IsDetected() {
				idx[[2]int{p.FileID, p.PeakID}] = s
			}
		}
	}
	return idx
}

// AssignLinksByIdentifiedIonFeatures carries the peak links of the
// representative detection of every reference-matched spot over to the spots
// holding the linked detections.
func AssignLinksByIdentifiedIonFeatures(spots []*core.AlignmentSpotProperty) {
	idx := newPeakIndex(spots)
	for _, s := range spots {
		if !s.IsReferenceMatched() {
			continue
		}
		propagateLinks(idx, s, s.RepresentativeFileID)
	}
}

// AssignLinksByRepresentativeIonFeatures carries peak links over from the
// strongest detection of each spot, visiting spots by average height. The
// nominal representative file is replaced only by a strictly higher peak;
// among equal maxima the first file wins.
func AssignLinksByRepresentativeIonFeatures(spots []*core.AlignmentSpotProperty) {
	idx := newPeakIndex(spots)

	ordered := slices.Clone(spots)
	slices.SortStableFunc(ordered, func(a, b *core.AlignmentSpotProperty) int {
		return cmp.Compare(b.HeightAverage, a.HeightAverage)
	})

	for _, s := range ordered {
		fileID := s.RepresentativeFileID
		maxHeight := s.AlignedPeakProperties[fileID].PeakHeightTop
		for _, p := range s.AlignedPeakProperties {
			if p.IsDetected() && p.PeakHeightTop > maxHeight {
				fileID, maxHeight = p.FileID, p.PeakHeightTop
			}
		}
		propagateLinks(idx, s, fileID)
	}
}

func propagateLinks(idx peakIndex, s *core.AlignmentSpotProperty, fileID int) {
	peak := &s.AlignedPeakProperties[fileID]
	if !peak.IsDetected() {
		return
	}
	for _, link := range peak.PeakCharacter.PeakLinks {
		t, ok := idx[[2]int{fileID, link.LinkedPeakID}]
		if !ok || t == s {
			continue
		}
		partner := &t.AlignedPeakProperties[fileID]

		switch link.Character {
		case core.LinkAdduct:
			if !adductAgrees(peak.PeakCharacter) || !adductAgrees(partner.PeakCharacter) {
				continue
			}
			adoptAdduct(s, peak.PeakCharacter)
			adoptAdduct(t, partner.PeakCharacter)
		case core.LinkIsotope:
			if partner.PeakCharacter.IsotopeWeightNumber > peak.PeakCharacter.IsotopeWeightNumber &&
				t.PeakCharacter.IsotopeParentPeakID < 0 {
				t.PeakCharacter.IsotopeWeightNumber = partner.PeakCharacter.IsotopeWeightNumber
				t.PeakCharacter.IsotopeParentPeakID = s.AlignmentID
			}
		}
		RegisterLinks(s, t, link.Character)
	}
}

// adductAgrees reports whether a peak's adduct is named and matches its charge.
func adductAgrees(pc core.PeakCharacter) bool {
	return pc.AdductName != "" && core.AdductChargeNumber(pc.AdductName) == pc.Charge
}

func adoptAdduct(s *core.AlignmentSpotProperty, from core.PeakCharacter) {
	if s.PeakCharacter.AdductName != "" {
		return
	}
	s.PeakCharacter.AdductName = from.AdductName
	s.PeakCharacter.Charge = from.Charge
}

// AssignPutativePeakgroupIDs gives every spot a PeakGroupID shared by all
// spots reachable through strong links. Weak links do not join groups.
func AssignPutativePeakgroupIDs(spots []*core.AlignmentSpotProperty) {
	byID := make(map[int]*core.AlignmentSpotProperty, len(spots))
	for _, s := range spots {
		s.PeakCharacter.PeakGroupID = -1
		byID[s.AlignmentID] = s
	}

	groupID := 0
	var stack []*core.AlignmentSpotProperty
	for _, root := range spots {
		if root.PeakCharacter.PeakGroupID >= 0 {
			continue
		}
		root.PeakCharacter.PeakGroupID = groupID
		stack = append(stack[:0], root)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, link := range cur.PeakCharacter.PeakLinks {
				if !link.Character.IsStrong() {
					continue
				}
				next, ok := byID[link.LinkedPeakID]
				if !ok || next.PeakCharacter.PeakGroupID >= 0 {
					continue
				}
				next.PeakCharacter.PeakGroupID = groupID
				stack = append(stack, next)
			}
		}
		groupID++
	}
}

// PostProcess assigns the default adduct of the ion mode to every spot
// without one, drift children included.
func PostProcess(spots []*core.AlignmentSpotProperty, mode core.IonMode) {
	for _, s := range spots {
		if s.PeakCharacter.AdductName == "" {
			s.PeakCharacter.AdductName = core.DefaultAdductName(mode, s.PeakCharacter.Charge)
		}
		PostProcess(s.AlignmentDriftSpotFeatures, mode)
	}
}
