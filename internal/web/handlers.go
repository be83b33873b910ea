package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/extract"
)

// handleStartImport accepts a multipart upload and starts asynchronous
// processing. Responds 202 with the initial batch snapshot; clients poll
// the batch endpoint until processed_at is set.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondBadRequest(w, "invalid multipart upload (is the file too large?)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(w, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	extractor, err := extract.ForFile(header.Filename, mimeType)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	// The multipart body closes when the handler returns, but parsing runs
	// inside the background source, so a malformed document fails its batch
	// instead of the request. Buffer the upload bytes here.
	data, err := io.ReadAll(file)
	if err != nil {
		respondBadRequest(w, "could not read upload: "+err.Error())
		return
	}

	meta := core.UploadMeta{
		FileName: header.Filename,
		MimeType: mimeType,
		Size:     header.Size,
	}
	source := extract.Source(extractor, bytes.NewReader(data))
	batch, err := s.service.StartImport(r.Context(), meta, source)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toBatchView(batch))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.service.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchView(batch))
}

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := core.RowFilter{
		Status:             core.RowStatus(q.Get("status")),
		Search:             q.Get("search"),
		UnresolvedLocation: q.Get("unresolved_location") == "true",
		UnresolvedCategory: q.Get("unresolved_category") == "true",
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := s.service.ListRows(r.Context(), chi.URLParam(r, "batchID"), filter, page, pageSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRowPageView(result))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

// applyMappingRequest is the body of POST /mappings.
type applyMappingRequest struct {
	Kind        string `json:"kind"` // "location" or "category"
	Text        string `json:"text"`
	CanonicalID string `json:"canonical_id"`
}

func (s *Server) handleApplyMapping(w http.ResponseWriter, r *http.Request) {
	var req applyMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	kind := core.MappingKind(req.Kind)
	if kind != core.MappingLocation && kind != core.MappingCategory {
		respondBadRequest(w, `"kind" must be "location" or "category"`)
		return
	}
	if req.CanonicalID == "" {
		respondBadRequest(w, `"canonical_id" is required`)
		return
	}

	updated, err := s.service.ApplyMapping(r.Context(), chi.URLParam(r, "batchID"), kind, req.Text, req.CanonicalID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	if err := s.service.Reprocess(r.Context(), batchID); err != nil {
		s.respondError(w, r, err)
		return
	}
	batch, err := s.service.GetBatch(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchView(batch))
}

// rowEditRequest is the body of POST /rows/{rowIndex}. Absent fields are
// left untouched.
type rowEditRequest struct {
	LocationText    *string `json:"location_text"`
	Description     *string `json:"description"`
	CategoryText    *string `json:"category_text"`
	PatrimonyNumber *string `json:"patrimony_number"`
	SerialNumber    *string `json:"serial_number"`
	Brand           *string `json:"brand"`
	Condition       *string `json:"condition"`
	RawValue        *string `json:"raw_value"`
	Notes           *string `json:"notes"`
}

func (e rowEditRequest) toRowEdit() core.RowEdit {
	return core.RowEdit{
		LocationText:    e.LocationText,
		Description:     e.Description,
		CategoryText:    e.CategoryText,
		PatrimonyNumber: e.PatrimonyNumber,
		SerialNumber:    e.SerialNumber,
		Brand:           e.Brand,
		Condition:       e.Condition,
		RawValue:        e.RawValue,
		Notes:           e.Notes,
	}
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	rowIndex, err := strconv.Atoi(chi.URLParam(r, "rowIndex"))
	if err != nil {
		respondBadRequest(w, "row index must be an integer")
		return
	}

	var req rowEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	row, err := s.service.UpdateRow(r.Context(), chi.URLParam(r, "batchID"), rowIndex, req.toRowEdit())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRowView(row))
}

func (s *Server) handleOverrideDuplicate(w http.ResponseWriter, r *http.Request) {
	rowIndex, err := strconv.Atoi(chi.URLParam(r, "rowIndex"))
	if err != nil {
		respondBadRequest(w, "row index must be an integer")
		return
	}

	row, err := s.service.OverrideDuplicate(r.Context(), chi.URLParam(r, "batchID"), rowIndex)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRowView(row))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Confirm(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommitResultView(result))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	if err := s.service.Cancel(r.Context(), batchID); err != nil {
		s.respondError(w, r, err)
		return
	}
	batch, err := s.service.GetBatch(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchView(batch))
}

func (s *Server) handleDiscardBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Discard(r.Context(), chi.URLParam(r, "batchID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.service.Locations(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]registryView, len(locations))
	for i, l := range locations {
		out[i] = registryView{ID: l.ID, Name: l.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]registryView, len(categories))
	for i, c := range categories {
		out[i] = registryView{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}
