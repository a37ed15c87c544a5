package installation

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
)

// VersionFile holds the version constants, relative to the web root.
var VersionFile = filepath.Join("libraries", "src", "Version.php")

var versionConst = regexp.MustCompile(`(?i)const[ \t]+(MAJOR|MINOR|PATCH)_VERSION[ \t]*=[ \t]*([0-9.]+)`)

// ParseVersion reads MAJOR, MINOR and PATCH version constants. Fewer than
// two constants means the version is unknown.
func ParseVersion(text string) (string, bool) {
	matches := versionConst.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		return "", false
	}
	parts := []string{"0", "0", "0"}
	for _, m := range matches {
		num := strings.Trim(m[2], ".")
		if num == "" {
			continue
		}
		switch strings.ToUpper(m[1]) {
		case "MAJOR":
			parts[0] = num
		case "MINOR":
			parts[1] = num
		case "PATCH":
			parts[2] = num
		}
	}
	return strings.Join(parts, "."), true
}

// DetectVersion reads the version of the installation at webRoot.
func DetectVersion(files fileaccess.Provider, webRoot string) (string, bool) {
	p := filepath.Join(webRoot, VersionFile)
	if !files.IsFile(p) {
		return "", false
	}
	data, err := files.ReadFile(p)
	if err != nil {
		return "", false
	}
	return ParseVersion(string(data))
}
