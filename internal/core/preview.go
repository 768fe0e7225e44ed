package core

import (
	"context"
	"time"
)

// maxPreviewSamples is the number of example rows per table in a preview.
const maxPreviewSamples = 5

// TablePreview describes how one group of identically-labelled tables
// would be ingested.
type TablePreview struct {
	Sources      []string           `json:"sources"`
	Labels       []string           `json:"labels"`
	Columns      []ColumnAssignment `json:"columns"`
	Kind         EntityKind         `json:"kind"`
	Scores       map[EntityKind]int `json:"scores"`
	Rows         int                `json:"rows"`
	StagedRows   int                `json:"staged_rows"`
	SampleFields []Fields           `json:"sample_fields"`
}

// PreviewResponse is the read-only analysis of an import request.
type PreviewResponse struct {
	Tables           []TablePreview `json:"tables"`
	FileErrors       []string       `json:"file_errors,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// Preview runs header detection, mapping and classification without
// touching the store.
func (s *Service) Preview(ctx context.Context, req ImportRequest) (*PreviewResponse, error) {
	start := time.Now()

	a, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.readable == 0 {
		return &PreviewResponse{FileErrors: a.fileErrors, Warnings: a.warnings}, ErrNoReadableFiles
	}

	resp := &PreviewResponse{FileErrors: a.fileErrors, Warnings: a.warnings}
	for _, g := range a.groups {
		tp := TablePreview{
			Sources: g.sourceIDs(),
			Labels:  g.labels,
			Columns: g.mapping.Columns,
			Kind:    g.kind,
			Scores:  g.class.Scores,
		}
		for _, rec := range buildRecords(g) {
			tp.Rows++
			if rec.Kind == KindUnknown || len(rec.Unmapped) > 0 {
				tp.StagedRows++
			}
			if len(tp.SampleFields) < maxPreviewSamples {
				tp.SampleFields = append(tp.SampleFields, rec.Fields)
			}
		}
		resp.Tables = append(resp.Tables, tp)
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}
