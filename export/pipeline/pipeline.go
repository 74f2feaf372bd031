// Package pipeline executes export jobs: it renders the requested artifact
// formats into a scratch directory, optionally converts the document to PDF,
// selects or bundles a result, places it into managed storage and finalizes
// the job record.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ncobase/docport/export/bundle"
	"github.com/ncobase/docport/export/pdf"
	"github.com/ncobase/docport/export/render"
	"github.com/ncobase/docport/export/repository"
	"github.com/ncobase/docport/export/storage"
	"github.com/ncobase/docport/export/structs"
	"github.com/ncobase/docport/logging/logger"
)

// Pipeline runs one job at a time. It is safe for concurrent use; all state
// lives in the job record and the per-run scratch directory.
type Pipeline struct {
	repo      repository.JobRepository
	renderers *render.Set
	converter *pdf.Converter
	placement *storage.Placement
	ttlHours  int
}

// New assembles a pipeline over the given collaborators.
func New(repo repository.JobRepository, renderers *render.Set, converter *pdf.Converter, placement *storage.Placement, ttlHours int) *Pipeline {
	return &Pipeline{
		repo:      repo,
		renderers: renderers,
		converter: converter,
		placement: placement,
		ttlHours:  ttlHours,
	}
}

// Run executes the job with the given id from start to finish. A job record
// that has vanished is a silent no-op. Any failure is recorded on the job
// before it is returned, so callers only need the error for logging.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warnf(ctx, "export job %s no longer exists, skipping", jobID)
		return nil
	}

	var req structs.ExportRequest
	if err := json.Unmarshal([]byte(job.Payload), &req); err != nil {
		p.fail(ctx, jobID, err)
		return fmt.Errorf("corrupt job payload: %w", err)
	}
	opts := &req.Options

	scratch, err := os.MkdirTemp("", fmt.Sprintf("export_%s_*", jobID))
	if err != nil {
		p.fail(ctx, jobID, err)
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	p.progress(ctx, jobID, structs.StatusRunning, 5)
	logger.Infof(ctx, "export job %s started, template %s", jobID, opts.Template)

	artifacts := make(map[string]string)

	docPath, err := p.render(ctx, jobID, p.renderers.Document, &req, scratch, artifacts)
	if err != nil {
		return err
	}
	p.progress(ctx, jobID, structs.StatusRunning, 30)

	if opts.IncludeTXT {
		if _, err := p.render(ctx, jobID, p.renderers.Text, &req, scratch, artifacts); err != nil {
			return err
		}
	}
	p.progress(ctx, jobID, structs.StatusRunning, 40)

	if opts.XLSXEnabled() {
		if _, err := p.render(ctx, jobID, p.renderers.Spreadsheet, &req, scratch, artifacts); err != nil {
			return err
		}
	}
	p.progress(ctx, jobID, structs.StatusRunning, 55)

	if opts.IncludePPTX {
		if _, err := p.render(ctx, jobID, p.renderers.Presentation, &req, scratch, artifacts); err != nil {
			return err
		}
	}
	p.progress(ctx, jobID, structs.StatusRunning, 70)

	if opts.IncludePDF {
		pdfPath, err := p.converter.Convert(ctx, docPath, scratch)
		if errors.Is(err, pdf.ErrEngineNotFound) {
			// The environment cannot produce PDFs at all; stop here rather
			// than hand out a partial bundle that silently misses one.
			logger.Errorf(ctx, "export job %s: %v", jobID, err)
			p.fail(ctx, jobID, err)
			return nil
		}
		if err != nil {
			p.fail(ctx, jobID, err)
			return fmt.Errorf("pdf conversion failed: %w", err)
		}
		artifacts[structs.FormatPdf] = pdfPath
	}
	p.progress(ctx, jobID, structs.StatusRunning, 80)

	resultPath, err := p.selectResult(jobID, opts, artifacts, scratch)
	if err != nil {
		p.fail(ctx, jobID, err)
		return err
	}

	stored, err := p.placement.Save(resultPath, p.ttlHours)
	if err != nil {
		p.fail(ctx, jobID, err)
		return fmt.Errorf("failed to store result: %w", err)
	}

	if _, err := p.repo.Finalize(ctx, jobID, stored.Path, stored.ExpiresAt); err != nil {
		p.fail(ctx, jobID, err)
		return err
	}

	logger.Infof(ctx, "export job %s complete, result %s", jobID, stored.Path)
	return nil
}

// render runs one renderer and records its artifact. A skipped format
// produces no entry and no error. The record keeps the renderer's own error
// text; the format prefix only decorates the returned error.
func (p *Pipeline) render(ctx context.Context, jobID string, r render.Renderer, req *structs.ExportRequest, scratch string, artifacts map[string]string) (string, error) {
	path, err := r.Render(req, scratch)
	if err != nil {
		p.fail(ctx, jobID, err)
		return "", fmt.Errorf("%s rendering failed: %w", r.Format(), err)
	}
	if path != "" {
		artifacts[r.Format()] = path
	}
	return path, nil
}

// selectResult picks the artifact delivered for download. Bundled jobs get a
// zip of every produced artifact; otherwise the preferred format wins, then
// the document, then the first produced format in fallback order.
func (p *Pipeline) selectResult(jobID string, opts *structs.Options, artifacts map[string]string, scratch string) (string, error) {
	if opts.Bundled() {
		files := make([]string, 0, len(artifacts))
		for _, format := range structs.FallbackOrder {
			if path, ok := artifacts[format]; ok {
				files = append(files, path)
			}
		}
		return bundle.Bundle(jobID, files, scratch)
	}

	if path, ok := artifacts[opts.PrimaryFormat]; ok {
		return path, nil
	}
	if path, ok := artifacts[structs.FormatDocx]; ok {
		return path, nil
	}
	for _, format := range structs.FallbackOrder {
		if path, ok := artifacts[format]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("no artifact produced for job %s", jobID)
}

func (p *Pipeline) progress(ctx context.Context, jobID string, status structs.JobStatus, progress int) {
	if err := p.repo.Update(ctx, jobID, map[string]any{
		"status":   status,
		"progress": progress,
	}); err != nil {
		logger.Warnf(ctx, "export job %s: progress update failed: %v", jobID, err)
	}
}

func (p *Pipeline) fail(ctx context.Context, jobID string, cause error) {
	if err := p.repo.Update(ctx, jobID, map[string]any{
		"status": structs.StatusFailed,
		"error":  cause.Error(),
	}); err != nil {
		logger.Errorf(ctx, "export job %s: failed to record failure: %v", jobID, err)
	}
}
