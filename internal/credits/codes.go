package credits

import (
	"fmt"
	"strings"
	"unicode"
)

const slugLetters = 3

// slug keeps the first letters of a name, uppercased, padded with 'X' when
// the name has fewer usable letters.
func slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= slugLetters {
				break
			}
		}
	}
	for b.Len() < slugLetters {
		b.WriteByte('X')
	}
	return b.String()
}

// CompanyCode derives a short deterministic code for a company. The numeric
// id suffix keeps codes unique even for duplicate names.
func CompanyCode(name string, id int64) string {
	return fmt.Sprintf("%s%03d", slug(name), id)
}

// ProjectCode derives a short deterministic code for a project.
func ProjectCode(name string, id int64) string {
	return fmt.Sprintf("%s%03d", slug(name), id)
}

// BuildCreditCode formats the globally unique code of one credit unit.
func BuildCreditCode(year int, companyCode, projectCode string, serial int64) string {
	return fmt.Sprintf("%d-%s-%s-%06d", year, companyCode, projectCode, serial)
}

// BuildBatchCode formats the code of an issuance batch over its serial range.
func BuildBatchCode(year int, companyCode, projectCode string, from, to int64) string {
	return fmt.Sprintf("%d-%s-%s-%06d_%06d", year, companyCode, projectCode, from, to)
}

// SerialPrefix is the shared prefix of every credit code in a batch.
func SerialPrefix(year int, companyCode, projectCode string) string {
	return fmt.Sprintf("%d-%s-%s", year, companyCode, projectCode)
}
