package model

import "strings"

// Program identifies the regional program a registration code is sold for.
type Program string

const (
	ProgramNigeria   Program = "NIGERIA"
	ProgramAfrican   Program = "AFRICAN"
	ProgramUSACanada Program = "USA/CANADA"
	ProgramEurope    Program = "EUROPE"
)

var Programs = []Program{ProgramNigeria, ProgramAfrican, ProgramUSACanada, ProgramEurope}

// ParseProgram accepts the canonical names as well as the lower-case slugs used by
// the admin tooling ("nigeria", "usa-canada", ...).
func ParseProgram(s string) (Program, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "/")
	normalized = strings.ReplaceAll(normalized, "_", "/")
	for _, p := range Programs {
		if string(p) == normalized {
			return p, true
		}
	}
	return "", false
}

// Prefix is the three-letter tag embedded in generated codes.
func (p Program) Prefix() string {
	letters := strings.ReplaceAll(string(p), "/", "")
	if len(letters) < 3 {
		return letters
	}
	return letters[:3]
}
