package archive

import (
	"fmt"

	"github.com/doeshing/retrace/internal/domain"
	"github.com/doeshing/retrace/internal/ports"
)

// Open returns the archive selected by settings. A SQLite store that cannot be
// opened falls back to the jsonl store next to it.
func Open(settings domain.ArchiveSettings, log ports.Logger) (ports.SessionArchive, error) {
	switch settings.Driver {
	case domain.ArchiveDriverJSONL:
		return NewFileStore(settings.Path), nil
	case "", domain.ArchiveDriverSQLite:
		store, err := NewSQLiteStore(settings.Path)
		if err == nil {
			return store, nil
		}
		fallback := NewFileStore("")
		if log != nil {
			log.Warn("sqlite archive unavailable, using jsonl", map[string]interface{}{
				"error":    err.Error(),
				"fallback": fallback.Path(),
			})
		}
		return fallback, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", settings.Driver)
	}
}
