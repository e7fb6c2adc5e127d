// Package workspace owns the single directory submitted code is written
// into before it is executed. Every path handed to the rest of the service
// goes through Resolve first, which is the only place containment inside
// the root is decided.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Workspace struct {
	root string
}

// New resolves root to an absolute path and creates the directory when it
// does not already exist. The handle is shared by every request for the
// lifetime of the service, files inside it are keyed by the caller supplied
// filename and a later request reusing a name overwrites the earlier file.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve workspace root %s", root)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to make workspace directory")
	}

	return &Workspace{root: abs}, nil
}

// Root returns the absolute path of the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve joins filename onto the workspace root and verifies the resolved
// path still sits strictly inside it. Joining first and verifying the
// result is the load bearing order here, checking the raw filename for
// suspicious substrings is not enough once the path has been normalised.
func (w *Workspace) Resolve(filename string) (string, error) {
	if filename == "" {
		return "", errors.New("filename must not be empty")
	}

	fullPath := filepath.Join(w.root, filename)

	rel, err := filepath.Rel(w.root, fullPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s inside the workspace", filename)
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("filename %s escapes the workspace root", filename)
	}

	return fullPath, nil
}

// Materialize writes data verbatim to filename inside the workspace,
// overwriting any previous file of the same name, and returns the absolute
// path of the written file.
func (w *Workspace) Materialize(filename string, data []byte) (string, error) {
	fullPath, err := w.Resolve(filename)
	if err != nil {
		return "", err
	}

	if writeErr := os.WriteFile(fullPath, data, 0o644); writeErr != nil {
		return "", errors.Wrapf(writeErr, "failed to write %s", filename)
	}

	return fullPath, nil
}

// Remove deletes a previously materialized file. A file that is already
// gone is not an error, the cleanup policy only cares that the file no
// longer exists afterwards.
func (w *Workspace) Remove(filename string) error {
	fullPath, err := w.Resolve(filename)
	if err != nil {
		return err
	}

	if removeErr := os.Remove(fullPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return errors.Wrapf(removeErr, "failed to remove %s", filename)
	}

	return nil
}
