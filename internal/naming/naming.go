package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"golang.org/x/text/unicode/norm"
)

const lockFile = ".karaoke.lock"

// Sequential numbers run directories 1, 2, 3, ... under root. A lock file in
// root serializes concurrent callers, including other processes.
type Sequential struct{}

func (Sequential) Next(root, _ string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	lk := flock.New(filepath.Join(root, lockFile))
	if err := lk.Lock(); err != nil {
		return "", fmt.Errorf("lock output root: %w", err)
	}
	defer lk.Unlock()

	for n := 1; ; n++ {
		dir := filepath.Join(root, strconv.Itoa(n))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
}

// Timestamped names run directories <slug>-<UTC stamp>-<hash6>.
type Timestamped struct {
	Now func() time.Time
}

func (t Timestamped) Next(root, name string) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	dir := buildRunOutDir(root, name, now().UTC())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func buildRunOutDir(outRoot, name string, now time.Time) string {
	slug := normalizePathSegment(name)
	if slug == "" {
		slug = "karaoke"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", name, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", slug, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(norm.NFC.String(s))) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// BaseName builds the artifact file stem "<title>-<artists>" with all
// whitespace removed. Path separators and control characters are dropped so
// the stem cannot escape its directory.
func BaseName(title, artists string) string {
	raw := norm.NFC.String(strings.TrimSpace(title) + "-" + strings.TrimSpace(artists))
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r):
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "karaoke"
	}
	return out
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
