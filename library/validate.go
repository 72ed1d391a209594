package library

import (
	"regexp"
	"strings"
)

// studentEmailDomain is the institutional mail domain every member
// email must belong to.
const studentEmailDomain = "@studenti.unisa.it"

// matricolaPattern is the fixed shape of a member id: exactly ten
// alphanumeric characters.
var matricolaPattern = regexp.MustCompile(`^[a-zA-Z0-9]{10}$`)

// IsIDValid reports whether id matches the institutional matricola
// shape. Pure string check, no lookup.
func IsIDValid(id string) bool {
	return matricolaPattern.MatchString(id)
}

// IsEmailValid reports whether email has a non-empty local part and
// the institutional student domain.
func IsEmailValid(email string) bool {
	if !strings.HasSuffix(email, studentEmailDomain) {
		return false
	}
	local := strings.TrimSuffix(email, studentEmailDomain)
	return local != "" && !strings.Contains(local, "@")
}
