package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"pathwaycore/internal/analysis"
	"pathwaycore/pkg/domain"
)

// readUserData reads a whitespace separated submission. A first line
// starting with '#' names the expression columns; its first field labels the
// identifier column and is dropped. With a header every line is an
// identifier followed by one value per column. Without one every field is
// an identifier. Malformed lines are skipped with a warning.
func readUserData(r io.Reader) (analysis.UserData, error) {
	var ud analysis.UserData
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	header := false
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if !header && len(ud.Identifiers) == 0 {
				fields := splitFields(strings.TrimPrefix(text, "#"))
				if len(fields) > 0 {
					fields = fields[1:]
				}
				ud.ColumnNames = fields
				header = true
				continue
			}
			ud.Warnings = append(ud.Warnings, fmt.Sprintf("Line %d: header ignored", line))
			continue
		}
		fields := splitFields(text)
		if !header || len(ud.ColumnNames) == 0 {
			for _, f := range fields {
				ud.Identifiers = append(ud.Identifiers, domain.NewAnalysisIdentifier(f))
			}
			continue
		}
		if len(fields)-1 != len(ud.ColumnNames) {
			ud.Warnings = append(ud.Warnings, fmt.Sprintf("Line %d: expected %d values, found %d; ignored", line, len(ud.ColumnNames), len(fields)-1))
			continue
		}
		id := domain.NewAnalysisIdentifier(fields[0])
		ok := true
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				ud.Warnings = append(ud.Warnings, fmt.Sprintf("Line %d: value %q is not a number; ignored", line, f))
				ok = false
				break
			}
			id.Exp = append(id.Exp, v)
		}
		if ok {
			ud.Identifiers = append(ud.Identifiers, id)
		}
	}
	if err := sc.Err(); err != nil {
		return analysis.UserData{}, fmt.Errorf("read input: %w", err)
	}
	return ud, nil
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
}
