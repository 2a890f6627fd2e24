package purify

import (
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// WriteAtomic writes text to path, replacing any previous contents
// atomically: a crash mid-write can never leave a truncated file at path.
// It performs no discovery, backup naming, or config loading — those are a
// caller's job.
func WriteAtomic(path string, text string) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644), renameio.WithExistingPermissions())
	if err != nil {
		return errors.Wrapf(err, "purify: open pending file for %q", path)
	}
	defer pf.Cleanup()

	if _, err := pf.Write([]byte(text)); err != nil {
		return errors.Wrapf(err, "purify: write %q", path)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, "purify: replace %q", path)
	}
	return nil
}
