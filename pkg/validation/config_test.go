package validation

import (
	"strings"
	"testing"
)

func TestValidateSettlement(t *testing.T) {
	tests := []struct {
		name       string
		settlement string
		expectErr  bool
	}{
		{name: "March", settlement: "202503"},
		{name: "December", settlement: "202512"},
		{name: "Dashed format", settlement: "2025-03", expectErr: true},
		{name: "Month 13", settlement: "202513", expectErr: true},
		{name: "Too short", settlement: "20253", expectErr: true},
		{name: "Empty", settlement: "", expectErr: true},
		{name: "Letters", settlement: "abcdef", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettlement(tt.settlement)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateSettlement(%q) error = %v, expectErr %v", tt.settlement, err, tt.expectErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw       string
		expectErr bool
	}{
		{raw: "https://www.sii.cl/valores_y_fechas"},
		{raw: "http://127.0.0.1:8080/surveymost"},
		{raw: "ftp://example.com", expectErr: true},
		{raw: "www.sii.cl", expectErr: true},
		{raw: "https://", expectErr: true},
		{raw: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateURL(tt.raw)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateURL(%q) error = %v, expectErr %v", tt.raw, err, tt.expectErr)
			}
		})
	}
}

func TestValidateSheetName(t *testing.T) {
	tests := []struct {
		name      string
		sheet     string
		expectErr bool
	}{
		{name: "Plain", sheet: "TablaAnexo1"},
		{name: "Accented", sheet: "Indexación"},
		{name: "Exactly 31 characters", sheet: strings.Repeat("a", 31)},
		{name: "Too long", sheet: strings.Repeat("a", 32), expectErr: true},
		{name: "Empty", sheet: "", expectErr: true},
		{name: "Blank", sheet: "   ", expectErr: true},
		{name: "Slash", sheet: "2024/2025", expectErr: true},
		{name: "Bracket", sheet: "VATT[1]", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSheetName(tt.sheet)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateSheetName(%q) error = %v, expectErr %v", tt.sheet, err, tt.expectErr)
			}
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		format    string
		expectErr bool
	}{
		{"pretty", false},
		{"csv", false},
		{"", true},
		{"json", true},
		{"CSV", true},
		{" pretty ", true},
	}

	for _, tt := range tests {
		err := ValidateOutputFormat(tt.format)
		if (err != nil) != tt.expectErr {
			t.Errorf("ValidateOutputFormat(%q) error = %v, expectErr %v", tt.format, err, tt.expectErr)
		}
	}
}

func TestValidateOutputFormatNamesChoices(t *testing.T) {
	err := ValidateOutputFormat("xlsx")
	if err == nil {
		t.Fatal("ValidateOutputFormat(xlsx) expected an error")
	}
	for _, want := range []string{"pretty", "csv", "xlsx"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
