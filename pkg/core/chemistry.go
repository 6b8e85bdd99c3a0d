// Package core provides chemistry calculations used by alignment: element
// masses, isotope spacing and ppm tolerance conversion.
package core

import (
	"fmt"
	"math"
	"strconv"
	"unicode"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassNa = 22.9897692809
	MassK  = 38.9637064864
	MassCl = 34.9688527100
	MassBr = 78.9183376000
	MassF  = 18.9984032200
	MassLi = 7.0160040000

	// Proton mass for charge calculations
	ProtonMass   = 1.00727646688
	ElectronMass = 0.00054858

	// Spacing between the 13C and 12C isotopologues
	C13C12Diff = 1.003355
)

var elementMasses = map[string]float64{
	"H": MassH, "C": MassC, "N": MassN, "O": MassO, "S": MassS, "P": MassP,
	"Na": MassNa, "K": MassK, "Cl": MassCl, "Br": MassBr, "F": MassF, "Li": MassLi,
}

// FormulaMass computes the monoisotopic mass of an elemental formula such as "H2O" or "NH4".
func FormulaMass(formula string) (float64, error) {
	runes := []rune(formula)
	mass := 0.0
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return 0, fmt.Errorf("invalid formula '%s' at position %d", formula, i)
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		element := string(runes[i:j])
		k := j
		for k < len(runes) && unicode.IsDigit(runes[k]) {
			k++
		}
		count := 1
		if k > j {
			n, err := strconv.Atoi(string(runes[j:k]))
			if err != nil {
				return 0, fmt.Errorf("invalid count in formula '%s': %w", formula, err)
			}
			count = n
		}
		m, ok := elementMasses[element]
		if !ok {
			return 0, fmt.Errorf("unknown element '%s' in formula '%s'", element, formula)
		}
		mass += m * float64(count)
		i = k
	}
	return mass, nil
}

// PpmCalculator returns the error of mz in ppm relative to exactMass.
func PpmCalculator(exactMass, mz float64) float64 {
	return (mz - exactMass) / exactMass * 1e6
}

// ConvertPpmToMassAccuracy converts a ppm error to an absolute m/z tolerance at exactMass.
func ConvertPpmToMassAccuracy(exactMass, ppm float64) float64 {
	return ppm * exactMass / 1e6
}

// ScaledMassTolerance returns tol unchanged up to m/z 500 and the equivalent
// ppm tolerance above it.
func ScaledMassTolerance(mz, tol float64) float64 {
	if mz <= 500 {
		return tol
	}
	ppm := math.Abs(PpmCalculator(500, 500+tol))
	return ConvertPpmToMassAccuracy(mz, ppm)
}
