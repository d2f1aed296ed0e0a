package commands

import (
	"os/exec"
	"strings"

	"github.com/vicentereig/qunalbum/internal/output"
)

// Version reports the build version. Dev builds fall back to git describe
// so a locally built binary still says what it was built from.
func Version(buildVersion string) string {
	return output.Success(map[string]any{
		"version": resolveVersion(buildVersion, gitDescribe),
	})
}

func resolveVersion(buildVersion string, describe func() (string, error)) string {
	if buildVersion != "" && buildVersion != "dev" {
		return buildVersion
	}
	v, err := describe()
	if err != nil || strings.TrimSpace(v) == "" {
		return "dev"
	}
	return strings.TrimSpace(v)
}

func gitDescribe() (string, error) {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
