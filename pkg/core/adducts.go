// Package core provides adduct parsing and management
package core

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// AdductIon is a parsed adduct notation such as "[2M+Na]+".
type AdductIon struct {
	Name          string
	MoleculeCount int
	ChargeNumber  int
	IonMode       IonMode
	MassShift     float64 // Net mass of added and removed groups
}

var (
	adductPattern     = regexp.MustCompile(`^\[(\d*)M([^\]]*)\](\d*)([+-])$`)
	adductTermPattern = regexp.MustCompile(`([+-])(\d*)([A-Za-z][A-Za-z0-9]*)`)
)

// Common solvent abbreviations used inside adduct notation.
var adductAliases = map[string]string{
	"ACN":     "C2H3N",
	"FA":      "CH2O2",
	"Hac":     "C2H4O2",
	"HAc":     "C2H4O2",
	"TFA":     "C2HF3O2",
	"MeOH":    "CH4O",
	"IsoProp": "C3H8O",
	"DMSO":    "C2H6OS",
}

// ParseAdduct parses an adduct name into its molecule count, charge and mass shift.
func ParseAdduct(name string) (AdductIon, error) {
	name = strings.TrimSpace(name)
	m := adductPattern.FindStringSubmatch(name)
	if m == nil {
		return AdductIon{}, fmt.Errorf("invalid adduct format '%s'", name)
	}

	ion := AdductIon{Name: name, MoleculeCount: 1, ChargeNumber: 1}
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return AdductIon{}, fmt.Errorf("invalid molecule count in adduct '%s'", name)
		}
		ion.MoleculeCount = n
	}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || n <= 0 {
			return AdductIon{}, fmt.Errorf("invalid charge in adduct '%s'", name)
		}
		ion.ChargeNumber = n
	}
	if m[4] == "-" {
		ion.IonMode = IonModeNegative
	}

	body := m[2]
	consumed := 0
	for _, term := range adductTermPattern.FindAllStringSubmatchIndex(body, -1) {
		if term[0] != consumed {
			return AdductIon{}, fmt.Errorf("invalid adduct term in '%s'", name)
		}
		consumed = term[1]

		sign := 1.0
		if body[term[2]:term[3]] == "-" {
			sign = -1.0
		}
		count := 1
		if term[5] > term[4] {
			n, err := strconv.Atoi(body[term[4]:term[5]])
			if err != nil {
				return AdductIon{}, fmt.Errorf("invalid term count in adduct '%s': %w", name, err)
			}
			count = n
		}
		group := body[term[6]:term[7]]
		if formula, ok := adductAliases[group]; ok {
			group = formula
		}
		mass, err := FormulaMass(group)
		if err != nil {
			return AdductIon{}, fmt.Errorf("invalid adduct '%s': %w", name, err)
		}
		ion.MassShift += sign * float64(count) * mass
	}
	if consumed != len(body) {
		return AdductIon{}, fmt.Errorf("invalid adduct term in '%s'", name)
	}

	return ion, nil
}

// AdductChargeNumber returns the charge of an adduct name, or -1 if it cannot be parsed.
func AdductChargeNumber(name string) int {
	ion, err := ParseAdduct(name)
	if err != nil {
		return -1
	}
	return ion.ChargeNumber
}

// DefaultAdductName returns the protonated or deprotonated adduct for a charge state.
func DefaultAdductName(mode IonMode, charge int) string {
	if mode == IonModeNegative {
		if charge <= 1 {
			return "[M-H]-"
		}
		return fmt.Sprintf("[M-%dH]%d-", charge, charge)
	}
	if charge <= 1 {
		return "[M+H]+"
	}
	return fmt.Sprintf("[M+%dH]%d+", charge, charge)
}

// AdductDatabase stores the adduct definitions recognised in peak tables.
type AdductDatabase struct {
	adducts map[string]AdductIon // name -> parsed adduct
}

// NewAdductDatabase creates an empty adduct database
func NewAdductDatabase() *AdductDatabase {
	return &AdductDatabase{
		adducts: make(map[string]AdductIon),
	}
}

// LoadFromCSV loads adducts from a CSV file (format: name[,comment])
func (db *AdductDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name := strings.TrimSpace(strings.Split(line, ",")[0])
		if err := db.Add(name); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// Get returns the adduct registered under name.
func (db *AdductDatabase) Get(name string) (AdductIon, bool) {
	ion, ok := db.adducts[strings.TrimSpace(name)]
	return ion, ok
}

// Add parses and registers an adduct
func (db *AdductDatabase) Add(name string) error {
	ion, err := ParseAdduct(name)
	if err != nil {
		return err
	}
	db.adducts[ion.Name] = ion
	return nil
}

// Names returns the registered adduct names for an ion mode, sorted.
func (db *AdductDatabase) Names(mode IonMode) []string {
	var names []string
	for name, ion := range db.adducts {
		if ion.IonMode == mode {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DefaultAdductDatabase returns an AdductDatabase pre-loaded with common ESI adducts
func DefaultAdductDatabase() *AdductDatabase {
	db := NewAdductDatabase()

	for _, name := range []string{
		"[M+H]+", "[M+NH4]+", "[M+Na]+", "[M+K]+", "[M+Li]+",
		"[M+ACN+H]+", "[M+H-H2O]+", "[M+H-2H2O]+", "[M+CH3OH+H]+",
		"[M+2H]2+", "[M+3H]3+", "[M+H+Na]2+", "[M+2Na]2+",
		"[2M+H]+", "[2M+NH4]+", "[2M+Na]+", "[2M+K]+",
		"[M-H]-", "[M-H2O-H]-", "[M+Na-2H]-", "[M+Cl]-", "[M+K-2H]-",
		"[M+FA-H]-", "[M+Hac-H]-", "[M+Br]-", "[M+TFA-H]-",
		"[M-2H]2-", "[M-3H]3-", "[2M-H]-", "[2M+FA-H]-", "[2M+Hac-H]-",
	} {
		// The built-in list is known to parse.
		_ = db.Add(name)
	}

	return db
}
