//go:build !linux || !cgo

package logreader

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// NewSystemdOpener reports that this build has no journal support
func NewSystemdOpener(dir string) JournalOpener {
	return func() (Journal, error) {
		return nil, domain.ErrJournalUnavailable
	}
}
