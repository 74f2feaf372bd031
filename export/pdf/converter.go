// Package pdf converts the primary document artifact to PDF using a headless
// office engine.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncobase/docport/config"
)

// ErrEngineNotFound is returned when no conversion engine binary is on PATH.
var ErrEngineNotFound = errors.New("conversion engine is not installed in this environment")

const defaultTimeout = 2 * time.Minute

// Converter invokes the external office engine.
type Converter struct {
	binaries []string
	timeout  time.Duration
}

// New creates a converter from configuration.
func New(cfg *config.PDF) *Converter {
	c := &Converter{
		binaries: cfg.Binaries,
		timeout:  cfg.Timeout,
	}
	if len(c.binaries) == 0 {
		c.binaries = []string{"libreoffice", "soffice"}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

// Convert converts the document at docPath to PDF inside outputDir and
// returns the PDF path. It returns ErrEngineNotFound when no engine binary
// is available, and a distinct error when the engine runs but produces no
// output.
func (c *Converter) Convert(ctx context.Context, docPath, outputDir string) (string, error) {
	executable, err := c.lookup()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, executable,
		"--headless", "--convert-to", "pdf", "--outdir", outputDir, docPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("pdf conversion timed out after %s", c.timeout)
		}
		return "", fmt.Errorf("pdf conversion failed: %v: %s", err, strings.TrimSpace(string(output)))
	}

	base := filepath.Base(docPath)
	pdfPath := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", errors.New("pdf conversion produced no output")
	}
	return pdfPath, nil
}

// lookup finds the first configured engine binary on PATH.
func (c *Converter) lookup() (string, error) {
	for _, name := range c.binaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrEngineNotFound
}
