package api

import (
	"context"

	"scribe/internal/runs"
)

// RunReader abstracts run persistence interactions needed for API queries.
type RunReader interface {
	List(ctx context.Context, statuses ...runs.Status) ([]*runs.Run, error)
	GetByID(ctx context.Context, id int64) (*runs.Run, error)
	ArtifactsForRun(ctx context.Context, runID int64) ([]*runs.Artifact, error)
}

// RunService exposes read-only run operations returning API DTOs.
type RunService struct {
	store RunReader
}

// NewRunService constructs a RunService around the provided reader.
func NewRunService(store RunReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// List returns runs filtered by status.
func (s *RunService) List(ctx context.Context, statuses ...runs.Status) ([]Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	dtos := FromRuns(records)
	if dtos == nil {
		dtos = []Run{}
	}
	return dtos, nil
}

// Describe fetches a single run with its artifacts.
func (s *RunService) Describe(ctx context.Context, id int64) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromRun(record)
	artifacts, err := s.store.ArtifactsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	dto.Artifacts = FromArtifacts(artifacts)
	return &dto, nil
}
