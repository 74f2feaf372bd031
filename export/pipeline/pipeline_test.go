package pipeline

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/data"
	"github.com/ncobase/docport/export/pdf"
	"github.com/ncobase/docport/export/render"
	"github.com/ncobase/docport/export/repository"
	"github.com/ncobase/docport/export/storage"
	"github.com/ncobase/docport/export/structs"
)

type fixture struct {
	repo     repository.JobRepository
	pipeline *Pipeline
	dir      string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureTTL(t, 24)
}

func newFixtureTTL(t *testing.T, ttlHours int) *fixture {
	t.Helper()

	source := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite3", source)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := data.Migrate(ctx, db, repository.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := t.TempDir()
	fs, err := storage.NewFileSystem(dir)
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}

	repo := repository.New(db)
	converter := pdf.New(&config.PDF{Binaries: []string{"no-such-engine-binary"}})
	pl := New(repo, render.NewSet(), converter, storage.NewPlacement(fs), ttlHours)

	return &fixture{repo: repo, pipeline: pl, dir: dir}
}

func (f *fixture) createJob(t *testing.T, id string, req *structs.ExportRequest) {
	t.Helper()

	req.Normalize(render.TemplateSummary)
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	options, err := json.Marshal(&req.Options)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}

	now := time.Now().UTC()
	job := &structs.Job{
		ID:        id,
		Status:    structs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		SessionID: req.SessionID,
		Payload:   string(payload),
		Options:   string(options),
	}
	if err := f.repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
}

func sampleRequest() *structs.ExportRequest {
	return &structs.ExportRequest{
		Title:     "Pipeline Report",
		Summary:   "All good.",
		SessionID: "s1",
		Sections:  []structs.Section{{Heading: "One", Body: "Body."}},
		Tables: []structs.Table{{
			Name:    "data",
			Columns: []string{"k", "v"},
		}},
	}
}

func TestRunProducesBundle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := sampleRequest()
	req.Options.IncludeTXT = true
	f.createJob(t, "job-1", req)

	if err := f.pipeline.Run(ctx, "job-1"); err != nil {
		t.Fatalf("run: %v", err)
	}

	job, err := f.repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != structs.StatusComplete || job.Progress != 100 {
		t.Fatalf("job not complete: %s/%d (%s)", job.Status, job.Progress, job.Error)
	}
	if len(job.DownloadCode) != repository.DownloadCodeLength {
		t.Fatalf("expected download code, got %q", job.DownloadCode)
	}
	if job.ExpiresAt == nil {
		t.Fatal("expected expiry")
	}
	if !strings.HasSuffix(job.ResultPath, "job-1_export.zip") {
		t.Fatalf("expected bundled result, got %q", job.ResultPath)
	}

	zr, err := zip.OpenReader(job.ResultPath)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, file := range zr.File {
		names[file.Name] = true
	}
	for _, want := range []string{"report.docx", "report.txt", "tables.xlsx", "manifest.json"} {
		if !names[want] {
			t.Fatalf("bundle missing %s, have %v", want, names)
		}
	}
	if names["report.pptx"] {
		t.Fatal("pptx rendered without being requested")
	}
}

func TestRunWithoutTTLCompletesWithoutExpiry(t *testing.T) {
	f := newFixtureTTL(t, 0)
	ctx := context.Background()

	f.createJob(t, "job-7", sampleRequest())
	if err := f.pipeline.Run(ctx, "job-7"); err != nil {
		t.Fatalf("run: %v", err)
	}

	job, err := f.repo.Get(ctx, "job-7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != structs.StatusComplete {
		t.Fatalf("job not complete: %s (%s)", job.Status, job.Error)
	}
	if job.ExpiresAt != nil {
		t.Fatalf("expected no expiry with zero ttl, got %v", job.ExpiresAt)
	}
}

func TestRunSingleArtifactResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := sampleRequest()
	req.Tables = nil
	zipAll := false
	req.Options.ZipAll = &zipAll
	f.createJob(t, "job-2", req)

	if err := f.pipeline.Run(ctx, "job-2"); err != nil {
		t.Fatalf("run: %v", err)
	}

	job, err := f.repo.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != structs.StatusComplete {
		t.Fatalf("job not complete: %s (%s)", job.Status, job.Error)
	}
	if !strings.HasSuffix(job.ResultPath, "report.docx") {
		t.Fatalf("expected docx result, got %q", job.ResultPath)
	}
}

func TestRunPrimaryFormatSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := sampleRequest()
	zipAll := false
	req.Options.ZipAll = &zipAll
	req.Options.PrimaryFormat = structs.FormatXlsx
	f.createJob(t, "job-3", req)

	if err := f.pipeline.Run(ctx, "job-3"); err != nil {
		t.Fatalf("run: %v", err)
	}

	job, err := f.repo.Get(ctx, "job-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasSuffix(job.ResultPath, "tables.xlsx") {
		t.Fatalf("expected xlsx result, got %q", job.ResultPath)
	}
}

func TestRunMissingEngineFailsJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := sampleRequest()
	req.Options.IncludePDF = true
	f.createJob(t, "job-4", req)

	// A missing engine fails the job but is not an execution error worth
	// retrying.
	if err := f.pipeline.Run(ctx, "job-4"); err != nil {
		t.Fatalf("run: %v", err)
	}

	job, err := f.repo.Get(ctx, "job-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != structs.StatusFailed {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	// The record carries the cause verbatim, without pipeline framing.
	if job.Error != pdf.ErrEngineNotFound.Error() {
		t.Fatalf("expected raw engine error, got %q", job.Error)
	}
}

func TestRunCorruptPayloadFailsJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &structs.Job{
		ID:        "job-5",
		Status:    structs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		SessionID: "s1",
		Payload:   "{not json",
		Options:   "{}",
	}
	if err := f.repo.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.pipeline.Run(ctx, "job-5"); err == nil {
		t.Fatal("expected error for corrupt payload")
	}

	stored, err := f.repo.Get(ctx, "job-5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != structs.StatusFailed {
		t.Fatalf("expected failed job, got %s", stored.Status)
	}
}

func TestRunVanishedJobIsNoop(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.Run(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
}

func TestRunCleansScratchDir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createJob(t, "job-6", sampleRequest())
	if err := f.pipeline.Run(ctx, "job-6"); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "export_job-6_") {
			t.Fatalf("scratch dir %s not cleaned up", entry.Name())
		}
	}
}
