package commands

import "strings"

// ParseUploadCommand matches text against "<prefix><name> [album]" for any
// of names. It returns the album argument (possibly empty) and whether the
// text is the command at all.
func ParseUploadCommand(text, prefix string, names []string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(text, prefix)

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	for _, name := range names {
		if fields[0] != name {
			continue
		}
		if len(fields) > 1 {
			return fields[1], true
		}
		return "", true
	}
	return "", false
}
