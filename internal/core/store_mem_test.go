package core

// store_mem_test.go provides the in-memory Store fake shared by the core
// tests, plus test fixtures. CreateAsset failures can be injected per
// patrimony key to exercise partial-failure commit paths.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
)

type memStore struct {
	mu sync.Mutex

	batches map[string]*ImportBatch
	rows    map[string][]ImportRow

	locations  []Location
	categories []Category

	assets   map[string]*Asset // by id
	assetSeq int

	// failCreate maps normalized patrimony keys to the error CreateAsset
	// should return for them.
	failCreate map[string]error

	// beforeUpdateRows, when set, runs at the start of every bulk row
	// write. Lets tests widen the window between reading rows and writing
	// them back.
	beforeUpdateRows func()

	createCalls int
}

func newMemStore() *memStore {
	return &memStore{
		batches:    make(map[string]*ImportBatch),
		rows:       make(map[string][]ImportRow),
		assets:     make(map[string]*Asset),
		failCreate: make(map[string]error),
	}
}

func (m *memStore) CreateBatch(_ context.Context, b *ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *memStore) GetBatch(_ context.Context, id string) (*ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) UpdateBatch(_ context.Context, b *ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.ID]; !ok {
		return ErrBatchNotFound
	}
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *memStore) DeleteBatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return ErrBatchNotFound
	}
	delete(m.batches, id)
	delete(m.rows, id)
	return nil
}

func (m *memStore) InsertRows(_ context.Context, rows []ImportRow) error {
	if len(rows) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batchID := rows[0].BatchID
	m.rows[batchID] = append(m.rows[batchID], rows...)
	return nil
}

func (m *memStore) ListRows(_ context.Context, batchID string) ([]ImportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[batchID]
	out := make([]ImportRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memStore) GetRow(_ context.Context, batchID string, index int) (*ImportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows[batchID] {
		if m.rows[batchID][i].Index == index {
			cp := m.rows[batchID][i]
			return &cp, nil
		}
	}
	return nil, ErrRowNotFound
}

func (m *memStore) UpdateRow(_ context.Context, r *ImportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows[r.BatchID] {
		if m.rows[r.BatchID][i].Index == r.Index {
			m.rows[r.BatchID][i] = *r
			return nil
		}
	}
	return ErrRowNotFound
}

func (m *memStore) UpdateRows(ctx context.Context, rows []ImportRow) error {
	if m.beforeUpdateRows != nil {
		m.beforeUpdateRows()
	}
	for i := range rows {
		if err := m.UpdateRow(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) PageRows(ctx context.Context, batchID string, f RowFilter, page, pageSize int) (*RowPage, error) {
	rows, err := m.ListRows(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var filtered []ImportRow
	search := strings.ToLower(f.Search)
	for _, r := range rows {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.UnresolvedLocation && r.LocationID != "" {
			continue
		}
		if f.UnresolvedCategory && r.CategoryID != "" {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(strings.Join([]string{
				r.PatrimonyNumber, r.Description, r.LocationText,
				r.CategoryText, r.SerialNumber, r.Brand,
			}, " "))
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &RowPage{
		Rows:     filtered[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (m *memStore) Locations(_ context.Context) ([]Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Location, len(m.locations))
	copy(out, m.locations)
	return out, nil
}

func (m *memStore) Categories(_ context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *memStore) AssetKeys(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, key := range keys {
		for id, a := range m.assets {
			if NormalizeKey(a.PatrimonyNumber) == key {
				out[key] = id
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CreateAsset(_ context.Context, a *Asset) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	key := NormalizeKey(a.PatrimonyNumber)
	if err, ok := m.failCreate[key]; ok {
		return "", err
	}
	for _, existing := range m.assets {
		if NormalizeKey(existing.PatrimonyNumber) == key {
			return "", fmt.Errorf("duplicate key value violates unique constraint \"assets_patrimony_key\"")
		}
	}

	m.assetSeq++
	cp := *a
	cp.ID = fmt.Sprintf("asset-%d", m.assetSeq)
	cp.CreatedAt = time.Now().UTC()
	m.assets[cp.ID] = &cp
	return cp.ID, nil
}

// seedAsset inserts a pre-existing canonical asset, bypassing the batch pipeline.
func (m *memStore) seedAsset(patrimony string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assetSeq++
	id := fmt.Sprintf("asset-%d", m.assetSeq)
	m.assets[id] = &Asset{ID: id, PatrimonyNumber: patrimony}
	return id
}

// testConfig returns an import configuration suitable for tests: synchronous
// enough to be deterministic, generous timeouts.
func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:     1 << 20,
			MaxConcurrent:   2,
			MaxWaitTime:     50 * time.Millisecond,
			Timeout:         5 * time.Second,
			MatchThreshold:  0.85,
			MaxCandidates:   5,
			Workers:         2,
			DefaultPageSize: 10,
			MaxPageSize:     50,
		},
	}
}

// newTestService wires a Service over a fresh memStore seeded with the
// canonical registries used across tests.
func newTestService() (*Service, *memStore) {
	st := newMemStore()
	st.locations = []Location{
		{ID: "loc-1", Name: "Sala 101"},
		{ID: "loc-2", Name: "Sala 102"},
		{ID: "loc-3", Name: "Depósito Central"},
		{ID: "loc-4", Name: "Laboratório de Informática"},
	}
	st.categories = []Category{
		{ID: "cat-1", Name: "Mobiliário"},
		{ID: "cat-2", Name: "Equipamento de Informática"},
		{ID: "cat-3", Name: "Eletrodoméstico"},
	}
	return NewService(st, testConfig()), st
}

// seedBatch creates a batch with rows directly in the store, bypassing the
// asynchronous StartImport path, and runs the normalization pipeline.
func seedBatch(ctx context.Context, s *Service, st *memStore, raw []RawRow) *ImportBatch {
	batch := &ImportBatch{
		ID:        fmt.Sprintf("batch-%d", len(st.batches)+1),
		FileName:  "inventario.csv",
		MimeType:  "text/csv",
		RowCount:  len(raw),
		Status:    BatchParsed,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := st.CreateBatch(ctx, batch); err != nil {
		panic(err)
	}

	rows := make([]ImportRow, len(raw))
	for i, rr := range raw {
		rows[i] = ImportRow{
			BatchID:         batch.ID,
			Index:           i,
			LocationText:    rr.LocationText,
			Description:     rr.Description,
			CategoryText:    rr.CategoryText,
			PatrimonyNumber: rr.PatrimonyNumber,
			SerialNumber:    rr.SerialNumber,
			Brand:           rr.Brand,
			Condition:       rr.Condition,
			RawValue:        rr.RawValue,
			Notes:           rr.Notes,
			Status:          RowPending,
		}
	}
	if err := st.InsertRows(ctx, rows); err != nil {
		panic(err)
	}
	if err := s.Reprocess(ctx, batch.ID); err != nil {
		panic(err)
	}
	return batch
}

// goodRow builds a raw row that resolves cleanly against the seeded registries.
func goodRow(patrimony string) RawRow {
	return RawRow{
		PatrimonyNumber: patrimony,
		Description:     "Cadeira giratória",
		LocationText:    "Sala 101",
		CategoryText:    "Mobiliário",
		RawValue:        "R$ 250,00",
	}
}
