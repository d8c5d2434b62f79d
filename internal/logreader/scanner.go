package logreader

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// ResolveFlatFile turns a configured flat-file location into a concrete path.
// A plain path is returned unchanged even if the file does not exist yet.
// A glob (e.g. /var/log/pacman*.log, /var/log/**/pacman.log) resolves to the
// most recently modified matching file.
func ResolveFlatFile(pattern string) (string, error) {
	if !hasMeta(pattern) {
		return pattern, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return "", fmt.Errorf("failed to expand pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file matches %s: %w", pattern, os.ErrNotExist)
	}

	best := ""
	var bestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			log.Warn().Err(err).Str("path", m).Msg("Skipping inaccessible path")
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = m, mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("no readable file matches %s: %w", pattern, os.ErrNotExist)
	}

	log.Debug().Str("pattern", pattern).Str("path", best).Int("candidates", len(matches)).Msg("Resolved flat file")
	return best, nil
}

func hasMeta(p string) bool {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}
