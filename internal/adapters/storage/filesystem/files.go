// Package filesystem stores sessions and drafts under a data directory:
//
//	<dir>/<sessionID>/session.json      full session snapshot
//	<dir>/<sessionID>/conversation.md   transcript
//	<dir>/<sessionID>/topics.md         topics by status
//	<dir>/<sessionID>/drafts/<topicID>.md
//
// Every write replaces the whole file through a rename, so readers never
// see a partial file.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

func checkID(kind, id string) error {
	if !domain.IsSafeID(id) {
		return fmt.Errorf("%w: invalid %s id %q", domain.ErrInvalidInput, kind, id)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
