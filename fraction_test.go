package settle

import (
	"encoding/json"
	"testing"
)

func TestFractionUnmarshalJSON(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantFrac Fraction
		wantErr  bool
	}{
		"zero": {
			raw:      `"0"`,
			wantFrac: Fraction{Denominator: 1},
		},
		"integer human format number": {
			raw:      `"4"`,
			wantFrac: Fraction{Numerator: 4, Denominator: 1},
		},
		"human readable format": {
			raw:      `"1/5"`,
			wantFrac: Fraction{Numerator: 1, Denominator: 5},
		},
		"percentage": {
			raw:      `"20%"`,
			wantFrac: Fraction{Numerator: 20, Denominator: 100},
		},
		"human readable format, too many separators": {
			raw:     `"1/2/3"`,
			wantErr: true,
		},
		"human readable format, floating point number": {
			raw:     `"1/3.3"`,
			wantErr: true,
		},
		"human readable format, signed number": {
			raw:     `"-1"`,
			wantErr: true,
		},
		"verbose format": {
			raw:      `{"numerator": 1, "denominator": 2}`,
			wantFrac: Fraction{Numerator: 1, Denominator: 2},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got Fraction
			err := json.Unmarshal([]byte(tc.raw), &got)
			if hasErr := err != nil; hasErr != tc.wantErr {
				t.Fatalf("returned error: %v", err)
			}
			if !tc.wantErr && got != tc.wantFrac {
				t.Fatalf("unexpected fraction: %v", got)
			}
		})
	}
}

func TestFractionValidate(t *testing.T) {
	if err := (Fraction{Numerator: 1}).Validate(); err == nil {
		t.Fatal("zero denominator must be rejected")
	}
	if err := (Fraction{Numerator: 1, Denominator: 5}).Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestFractionCompareAndNormalize(t *testing.T) {
	a := Fraction{Numerator: 20, Denominator: 100}
	b := Fraction{Numerator: 1, Denominator: 5}
	if a.Compare(b) != 0 {
		t.Fatal("20/100 must equal 1/5")
	}
	if got := a.Normalize(); got != b {
		t.Fatalf("unexpected normalized value %v", got)
	}
	if (Fraction{Numerator: 1, Denominator: 2}).Compare(b) != 1 {
		t.Fatal("1/2 must be greater than 1/5")
	}
	if b.Compare(Fraction{Numerator: 1, Denominator: 1}) != -1 {
		t.Fatal("1/5 must be lower than 1")
	}
}
