package vocab

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	usersRoot       = "users"
	defaultsRoot    = "defaults"
	courseIndexName = "courses.json"
	stateName       = "server_state.json"
	snapshotDirName = "snapshots"
)

var (
	filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.json$`)
	slugStrip       = regexp.MustCompile(`[^a-z0-9]+`)

	reservedNames = map[string]struct{}{
		courseIndexName: {},
		stateName:       {},
	}
)

// Namespace derives the storage segment for a user id: lowercase, every
// character outside [a-z0-9@._-] replaced by '_'. When anything was
// replaced, a short hash of the original id is appended so two ids that
// differ only in replaced characters do not share a namespace.
func Namespace(userID string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(userID))
	if lowered == "" {
		return "", InvalidInput("namespace", "user id is empty")
	}

	var b strings.Builder
	replaced := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '@', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			replaced = true
		}
	}
	ns := b.String()
	if replaced {
		sum := sha256.Sum256([]byte(lowered))
		ns += "-" + hex.EncodeToString(sum[:4])
	}

	if ns == "." || strings.Contains(ns, "..") {
		return "", InvalidInput("namespace", "user id resolves to an unsafe path")
	}
	return ns, nil
}

// ValidateFilename fails fast on names that could escape the user's
// namespace or clobber the course index / maintenance state.
func ValidateFilename(name string) error {
	if !filenamePattern.MatchString(name) {
		return InvalidInput("validate filename", "invalid vocab filename %q", name)
	}
	if _, reserved := reservedNames[name]; reserved {
		return InvalidInput("validate filename", "%q is a reserved name", name)
	}
	return nil
}

// CourseFilename derives a vocab filename from a display name and a
// uniqueness suffix, e.g. ("Spanish Verbs", "1a2b3c4d") -> "spanish-verbs-1a2b3c4d.json".
func CourseFilename(name, suffix string) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	if slug == "" {
		slug = "course"
	}
	suffix = slugStrip.ReplaceAllString(strings.ToLower(suffix), "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix == "" {
		return slug + ".json"
	}
	return slug + "-" + suffix + ".json"
}

func userRoot(ns string) string { return usersRoot + "/" + ns }
func courseIndexPath(ns string) string { return userRoot(ns) + "/" + courseIndexName }
func statePath(ns string) string { return userRoot(ns) + "/" + stateName }
func vocabPath(ns, file string) string { return userRoot(ns) + "/" + file }
func snapshotDir(ns string) string { return userRoot(ns) + "/" + snapshotDirName }
func defaultVocabPath(file string) string { return defaultsRoot + "/" + file }
func defaultIndexPath() string { return defaultsRoot + "/" + courseIndexName }
