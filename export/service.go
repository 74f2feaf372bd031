// Package export coordinates the export job lifecycle: accepting requests,
// dispatching them for execution and answering status, download and delete
// queries against the job store.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/export/dispatch"
	"github.com/ncobase/docport/export/repository"
	"github.com/ncobase/docport/export/storage"
	"github.com/ncobase/docport/export/structs"
	"github.com/ncobase/docport/logging/logger"
)

// Lifecycle errors surfaced to the HTTP layer, which maps each to its own
// status code.
var (
	ErrInvalid     = errors.New("invalid export request")
	ErrJobNotFound = errors.New("export job not found")
	ErrNotReady    = errors.New("export job is not complete")
	ErrBadCode     = errors.New("download code does not match")
	ErrExpired     = errors.New("export file has expired or was removed")
)

// Receipt is returned when a job is accepted.
type Receipt struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	EstimatedSeconds int    `json:"estimated_time_seconds"`
}

// Status is the job state reported to clients.
type Status struct {
	JobID     string       `json:"job_id"`
	Status    string       `json:"status"`
	Progress  int          `json:"progress"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Error     string       `json:"error,omitempty"`
	Download  *DownloadRef `json:"download,omitempty"`
}

// DownloadRef points a client at the finished artifact.
type DownloadRef struct {
	URL       string     `json:"url"`
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Download describes a file released for streaming.
type Download struct {
	Path     string
	Filename string
}

// Service owns the job lifecycle.
type Service struct {
	repo       repository.JobRepository
	dispatcher dispatch.Dispatcher
	cfg        *config.Export
}

// NewService creates the export service.
func NewService(repo repository.JobRepository, dispatcher dispatch.Dispatcher, cfg *config.Export) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, cfg: cfg}
}

// Submit validates the request, persists a pending job and queues it for
// execution.
func (s *Service) Submit(ctx context.Context, req *structs.ExportRequest) (*Receipt, error) {
	req.Normalize(s.cfg.DefaultTemplate)
	if err := req.Validate(s.cfg.AllowedTemplates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}
	options, err := json.Marshal(&req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize options: %w", err)
	}

	now := time.Now()
	job := &structs.Job{
		ID:        uuid.NewString(),
		Status:    structs.StatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Payload:   string(payload),
		Options:   string(options),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		// The record stays; a failed enqueue is a failed job.
		updErr := s.repo.Update(ctx, job.ID, map[string]any{
			"status": structs.StatusFailed,
			"error":  fmt.Sprintf("failed to queue job: %v", err),
		})
		if updErr != nil {
			logger.Errorf(ctx, "export job %s: failed to record queue failure: %v", job.ID, updErr)
		}
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	logger.Infof(ctx, "export job %s accepted for session %s", job.ID, req.SessionID)
	return &Receipt{
		JobID:            job.ID,
		Status:           string(structs.StatusPending),
		EstimatedSeconds: s.cfg.EstimateSeconds,
	}, nil
}

// Status reports the job's current state. Complete jobs carry a relative
// download URL with the job's code already embedded.
func (s *Service) Status(ctx context.Context, jobID string) (*Status, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	st := &Status{
		JobID:     job.ID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		Error:     job.Error,
	}
	if job.Status == structs.StatusComplete && job.DownloadCode != "" {
		st.Download = &DownloadRef{
			URL:       fmt.Sprintf("/api/v1/download/%s?code=%s", job.ID, job.DownloadCode),
			Code:      job.DownloadCode,
			ExpiresAt: job.ExpiresAt,
		}
	}
	return st, nil
}

// Release checks the download preconditions and returns the file to stream.
// The checks are ordered so a caller probing with a bad code cannot learn
// more than a caller without one: existence first, readiness second, code
// third, file availability last.
func (s *Service) Release(ctx context.Context, jobID, code string) (*Download, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Status != structs.StatusComplete || job.ResultPath == "" {
		return nil, ErrNotReady
	}
	if code == "" || code != job.DownloadCode {
		return nil, ErrBadCode
	}
	if job.ExpiresAt != nil && time.Now().After(*job.ExpiresAt) {
		return nil, ErrExpired
	}
	if _, err := os.Stat(job.ResultPath); err != nil {
		return nil, ErrExpired
	}

	return &Download{
		Path:     job.ResultPath,
		Filename: storage.DownloadName(job.ResultPath),
	}, nil
}

// Delete removes the job record and its stored artifact if one exists.
func (s *Service) Delete(ctx context.Context, jobID string) error {
	resultPath, found, err := s.repo.Delete(ctx, jobID)
	if err != nil {
		return err
	}
	if !found {
		return ErrJobNotFound
	}
	if resultPath != "" {
		if err := os.Remove(resultPath); err != nil && !os.IsNotExist(err) {
			logger.Warnf(ctx, "export job %s: failed to remove artifact %s: %v", jobID, resultPath, err)
		}
	}
	logger.Infof(ctx, "export job %s deleted", jobID)
	return nil
}

// Stats returns job counts grouped by status.
func (s *Service) Stats(ctx context.Context) (map[structs.JobStatus]int, error) {
	return s.repo.Stats(ctx)
}
