package core

import (
	"math"
	"strings"
	"testing"
)

func TestParseAdduct(t *testing.T) {
	tests := []struct {
		name     string
		adduct   string
		molecule int
		charge   int
		mode     IonMode
		shift    float64
		wantErr  bool
	}{
		{name: "protonated", adduct: "[M+H]+", molecule: 1, charge: 1, mode: IonModePositive, shift: MassH},
		{name: "doubly protonated", adduct: "[M+2H]2+", molecule: 1, charge: 2, mode: IonModePositive, shift: 2 * MassH},
		{name: "deprotonated", adduct: "[M-H]-", molecule: 1, charge: 1, mode: IonModeNegative, shift: -MassH},
		{name: "dimer sodium", adduct: "[2M+Na]+", molecule: 2, charge: 1, mode: IonModePositive, shift: MassNa},
		{name: "formate alias", adduct: "[M+FA-H]-", molecule: 1, charge: 1, mode: IonModeNegative, shift: 2*MassH + MassC + 2*MassO - MassH},
		{name: "water loss", adduct: "[M+H-H2O]+", molecule: 1, charge: 1, mode: IonModePositive, shift: MassH - (2*MassH + MassO)},
		{name: "missing brackets", adduct: "M+H", wantErr: true},
		{name: "unknown group", adduct: "[M+Zz]+", wantErr: true},
		{name: "garbage term", adduct: "[M*H]+", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ion, err := ParseAdduct(tt.adduct)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAdduct(%q) error = %v, wantErr %v", tt.adduct, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ion.MoleculeCount != tt.molecule || ion.ChargeNumber != tt.charge || ion.IonMode != tt.mode {
				t.Errorf("ParseAdduct(%q) = %+v", tt.adduct, ion)
			}
			if math.Abs(ion.MassShift-tt.shift) > 1e-6 {
				t.Errorf("ParseAdduct(%q) shift = %.6f, want %.6f", tt.adduct, ion.MassShift, tt.shift)
			}
		})
	}
}

func TestDefaultAdductName(t *testing.T) {
	tests := []struct {
		mode   IonMode
		charge int
		want   string
	}{
		{IonModePositive, 1, "[M+H]+"},
		{IonModePositive, 2, "[M+2H]2+"},
		{IonModePositive, 0, "[M+H]+"},
		{IonModeNegative, 1, "[M-H]-"},
		{IonModeNegative, 3, "[M-3H]3-"},
	}

	for _, tt := range tests {
		got := DefaultAdductName(tt.mode, tt.charge)
		if got != tt.want {
			t.Errorf("DefaultAdductName(%v, %d) = %s, want %s", tt.mode, tt.charge, got, tt.want)
		}
		// Every default must parse back to its own charge.
		want := tt.charge
		if want < 1 {
			want = 1
		}
		if c := AdductChargeNumber(got); c != want {
			t.Errorf("AdductChargeNumber(%s) = %d, want %d", got, c, want)
		}
	}
}

func TestAdductDatabase(t *testing.T) {
	db := DefaultAdductDatabase()
	if _, ok := db.Get("[M+NH4]+"); !ok {
		t.Error("expected [M+NH4]+ in default database")
	}
	for _, name := range db.Names(IonModeNegative) {
		if !strings.HasSuffix(name, "-") {
			t.Errorf("negative list contains %s", name)
		}
	}

	csv := "name,comment\n[M+C2H3N+Na]+,custom\n\n[M+Cl]-,\n"
	custom := NewAdductDatabase()
	if err := custom.LoadFromCSV(strings.NewReader(csv)); err != nil {
		t.Fatalf("LoadFromCSV: %v", err)
	}
	if len(custom.Names(IonModePositive)) != 1 || len(custom.Names(IonModeNegative)) != 1 {
		t.Errorf("unexpected adducts loaded: %v %v", custom.Names(IonModePositive), custom.Names(IonModeNegative))
	}

	bad := NewAdductDatabase()
	if err := bad.LoadFromCSV(strings.NewReader("name\nnot-an-adduct\n")); err == nil {
		t.Error("expected error for invalid adduct row")
	}
}
