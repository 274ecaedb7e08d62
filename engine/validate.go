package engine

// forbiddenChars is the closed set of characters rejected in tag and
// file names (spec §6), shared by every place a name is validated so
// rename (were it ever added) could reuse the same check.
const forbiddenChars = "#<$+%>!`&*'|{}?\"=/:\\@"

func hasForbiddenChar(name string) bool {
	for _, r := range name {
		for _, f := range forbiddenChars {
			if r == f {
				return true
			}
		}
	}
	return false
}

func validateTagName(name string) error {
	if hasForbiddenChar(name) {
		return ErrInvalidTagName
	}
	return nil
}

func validateFileName(name string) error {
	if hasForbiddenChar(name) {
		return ErrInvalidFileName
	}
	return nil
}

// validateName is used where the caller doesn't yet know whether the
// name belongs to a tag or a file (mkfs's root tag); it applies the
// shared forbidden-character check and reports as a tag-name error.
func validateName(name string) error {
	return validateTagName(name)
}
