// Package editor opens vault documents in the user's text editor.
package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tessera/internal/ports"
)

// Opener implements ports.DocumentOpener with $EDITOR
type Opener struct {
	vaultPath string
}

// Ensure Opener implements DocumentOpener
var _ ports.DocumentOpener = (*Opener)(nil)

// NewOpener creates an editor opener for the vault at vaultPath
func NewOpener(vaultPath string) *Opener {
	return &Opener{vaultPath: vaultPath}
}

// Open opens a vault-relative document in the editor and waits for it to exit
func (o *Opener) Open(relPath string) error {
	cmd, err := o.Command(relPath)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns the editor command for a vault-relative document
func (o *Opener) Command(relPath string) (*exec.Cmd, error) {
	if !filepath.IsLocal(filepath.FromSlash(relPath)) {
		return nil, fmt.Errorf("document is outside the vault: %s", relPath)
	}

	editor := findEditor()
	if editor == "" {
		return nil, fmt.Errorf("no editor found: set $EDITOR environment variable")
	}

	// $EDITOR may carry arguments, e.g. "code --wait"
	parts := strings.Fields(editor)
	args := append(parts[1:], filepath.Join(o.vaultPath, filepath.FromSlash(relPath)))

	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd, nil
}

// findEditor returns the editor to use
func findEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	for _, editor := range []string{"nvim", "vim", "vi", "nano"} {
		if path, err := exec.LookPath(editor); err == nil {
			return path
		}
	}
	return ""
}
