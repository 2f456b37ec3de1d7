// Package obsidian opens vault documents in the Obsidian app.
package obsidian

import (
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"tessera/internal/ports"
)

// Opener implements ports.DocumentOpener through the obsidian:// URI scheme
type Opener struct {
	vaultName string
	launch    func(uri string) error
}

// Ensure Opener implements DocumentOpener
var _ ports.DocumentOpener = (*Opener)(nil)

// NewOpener creates an opener for the vault at vaultPath
func NewOpener(vaultPath string) *Opener {
	return &Opener{
		vaultName: filepath.Base(filepath.Clean(vaultPath)),
		launch:    openURI,
	}
}

// Open opens a vault-relative document
func (o *Opener) Open(relPath string) error {
	uri, err := o.BuildURI(relPath)
	if err != nil {
		return err
	}
	return o.launch(uri)
}

// BuildURI constructs the obsidian:// URI for a vault-relative path
func (o *Opener) BuildURI(relPath string) (string, error) {
	// Obsidian expects forward slashes in paths
	rel := path.Clean(filepath.ToSlash(relPath))

	if rel == "." || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("document is outside the vault: %s", relPath)
	}

	uri := fmt.Sprintf("obsidian://open?vault=%s&file=%s",
		url.PathEscape(o.vaultName),
		url.PathEscape(rel),
	)
	return uri, nil
}

func openURI(uri string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", uri)
	case "linux":
		cmd = exec.Command("xdg-open", uri)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", uri)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return cmd.Run()
}
