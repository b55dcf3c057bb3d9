package application

import "regexp"

var phonePattern = regexp.MustCompile(`^\D*(?:(\d{3})\D*)?(\d{3})\D*(\d{4})(?:\D+(\d+))?$`)

// IsPhoneValid reports whether phone holds a three digit area code followed by
// a seven digit local number. Separators are free-form and a trailing
// extension is allowed when set apart by a non-digit.
func IsPhoneValid(phone string) bool {
	parts := phonePattern.FindStringSubmatch(phone)
	if parts == nil {
		return false
	}
	return len(parts[1]) == 3 && len(parts[2]) == 3 && len(parts[3]) == 4
}
