package web

// views.go defines the JSON shapes of the API. Core types stay free of
// serialization tags; the web layer owns the wire representation.

import (
	"time"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

type batchView struct {
	ID          string            `json:"id"`
	FileName    string            `json:"file_name"`
	MimeType    string            `json:"mime_type,omitempty"`
	SizeBytes   int64             `json:"size_bytes"`
	RowCount    int               `json:"row_count"`
	Created     int               `json:"created"`
	Skipped     int               `json:"skipped"`
	Errored     int               `json:"errored"`
	Status      string            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Result      *commitResultView `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
}

type rowView struct {
	BatchID           string   `json:"batch_id"`
	Index             int      `json:"index"`
	LocationText      string   `json:"location_text"`
	Description       string   `json:"description"`
	CategoryText      string   `json:"category_text"`
	PatrimonyNumber   string   `json:"patrimony_number"`
	SerialNumber      string   `json:"serial_number,omitempty"`
	Brand             string   `json:"brand,omitempty"`
	Condition         string   `json:"condition,omitempty"`
	RawValue          string   `json:"raw_value,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Value             *float64 `json:"value"`
	LocationID        string   `json:"location_id,omitempty"`
	CategoryID        string   `json:"category_id,omitempty"`
	LocationConfirmed bool     `json:"location_confirmed"`
	CategoryConfirmed bool     `json:"category_confirmed"`
	DuplicateOverride bool     `json:"duplicate_override"`
	Status            string   `json:"status"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	AssetID           string   `json:"asset_id,omitempty"`
}

type rowPageView struct {
	Rows     []rowView `json:"rows"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type candidateView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type mappingView struct {
	Kind           string          `json:"kind"`
	Text           string          `json:"text"`
	NormalizedText string          `json:"normalized_text"`
	ResolvedID     string          `json:"resolved_id,omitempty"`
	Confirmed      bool            `json:"confirmed"`
	RowCount       int             `json:"row_count"`
	Candidates     []candidateView `json:"candidates"`
}

type summaryView struct {
	Locations  []mappingView `json:"locations"`
	Categories []mappingView `json:"categories"`
	Problems   int           `json:"problems"`
	CanConfirm bool          `json:"can_confirm"`
}

type rowFailureView struct {
	RowIndex  int    `json:"row_index"`
	Patrimony string `json:"patrimony"`
	Reason    string `json:"reason"`
}

type commitResultView struct {
	Created  int              `json:"created"`
	Skipped  int              `json:"skipped"`
	Failures []rowFailureView `json:"failures"`
}

type registryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toBatchView(b *core.ImportBatch) batchView {
	return batchView{
		ID:          b.ID,
		FileName:    b.FileName,
		MimeType:    b.MimeType,
		SizeBytes:   b.SizeBytes,
		RowCount:    b.RowCount,
		Created:     b.Created,
		Skipped:     b.Skipped,
		Errored:     b.Errored,
		Status:      string(b.Status),
		Error:       b.Error,
		Result:      toCommitResultView(b.Result),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		ProcessedAt: b.ProcessedAt,
		ConfirmedAt: b.ConfirmedAt,
	}
}

func toRowView(r *core.ImportRow) rowView {
	return rowView{
		BatchID:           r.BatchID,
		Index:             r.Index,
		LocationText:      r.LocationText,
		Description:       r.Description,
		CategoryText:      r.CategoryText,
		PatrimonyNumber:   r.PatrimonyNumber,
		SerialNumber:      r.SerialNumber,
		Brand:             r.Brand,
		Condition:         r.Condition,
		RawValue:          r.RawValue,
		Notes:             r.Notes,
		Value:             r.Value,
		LocationID:        r.LocationID,
		CategoryID:        r.CategoryID,
		LocationConfirmed: r.LocationConfirmed,
		CategoryConfirmed: r.CategoryConfirmed,
		DuplicateOverride: r.DuplicateOverride,
		Status:            string(r.Status),
		ErrorMessage:      r.ErrorMessage,
		AssetID:           r.AssetID,
	}
}

func toRowPageView(p *core.RowPage) rowPageView {
	rows := make([]rowView, len(p.Rows))
	for i := range p.Rows {
		rows[i] = toRowView(&p.Rows[i])
	}
	return rowPageView{Rows: rows, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

func toMappingView(m *core.FieldMapping) mappingView {
	candidates := make([]candidateView, len(m.Candidates))
	for i, c := range m.Candidates {
		candidates[i] = candidateView{ID: c.ID, Name: c.Name, Score: c.Score}
	}
	return mappingView{
		Kind:           string(m.Kind),
		Text:           m.Text,
		NormalizedText: m.NormalizedText,
		ResolvedID:     m.ResolvedID,
		Confirmed:      m.Confirmed,
		RowCount:       m.RowCount,
		Candidates:     candidates,
	}
}

func toSummaryView(s *core.NormalizationSummary) summaryView {
	locations := make([]mappingView, len(s.Locations))
	for i := range s.Locations {
		locations[i] = toMappingView(&s.Locations[i])
	}
	categories := make([]mappingView, len(s.Categories))
	for i := range s.Categories {
		categories[i] = toMappingView(&s.Categories[i])
	}
	return summaryView{
		Locations:  locations,
		Categories: categories,
		Problems:   s.Problems,
		CanConfirm: s.CanConfirm,
	}
}

func toCommitResultView(r *core.CommitResult) *commitResultView {
	if r == nil {
		return nil
	}
	failures := make([]rowFailureView, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = rowFailureView{RowIndex: f.RowIndex, Patrimony: f.Patrimony, Reason: f.Reason}
	}
	return &commitResultView{Created: r.Created, Skipped: r.Skipped, Failures: failures}
}
