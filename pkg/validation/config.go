package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
)

// maxSheetNameLength is the spreadsheet limit on sheet name length.
const maxSheetNameLength = 31

// ValidateSettlement checks that a settlement period is a YYYYMM month.
func ValidateSettlement(settlement string) error {
	_, err := datetime.ParseSettlement(settlement)
	return err
}

// ValidateOutputFormat checks that format is one of the console output formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV:
		return nil
	}
	return fmt.Errorf("output format %q is not one of %s, %s",
		format, constants.OutputFormatPretty, constants.OutputFormatCSV)
}

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// ValidateSheetName checks a workbook sheet name against the spreadsheet
// naming rules.
func ValidateSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sheet name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		return fmt.Errorf("sheet name %q is longer than %d characters", name, maxSheetNameLength)
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return fmt.Errorf("sheet name %q contains one of : \\ / ? * [ ]", name)
	}
	return nil
}
