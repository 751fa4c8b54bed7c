package rules

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var documentationHeader = []string{"Rule name", "Outcome type", "Rule ID", "Description"}

// WriteDocumentation writes the rule catalog of a chain as semicolon separated values,
// one line per rule in declaration order.
func WriteDocumentation(w io.Writer, catalog Catalog) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write(documentationHeader); err != nil {
		return fmt.Errorf("writing documentation header for %s: %w", catalog.Name(), err)
	}
	for _, info := range catalog.Infos() {
		ruleID := ""
		if info.RuleID != nil {
			ruleID = strconv.Itoa(*info.RuleID)
		}
		if err := writer.Write([]string{info.RuleName, info.Status.String(), ruleID, info.Description}); err != nil {
			return fmt.Errorf("writing documentation for rule %s: %w", info.RuleName, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// DocumentationFileName returns the file name used for a chain's documentation.
func DocumentationFileName(catalog Catalog) string {
	return catalog.Name() + "-rules.csv"
}
