package extract

import (
	"context"
	"strings"
	"testing"
)

func TestCSVExtract_Semicolon(t *testing.T) {
	input := "Nº Patrimônio;Descrição;Localização;Categoria;Valor (R$)\n" +
		"PAT-001;Cadeira giratória;Sala 101;Mobiliário;R$ 250,00\n" +
		"PAT-002;Mesa;Sala 102;Mobiliário;1.234,56\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	r := rows[0]
	if r.PatrimonyNumber != "PAT-001" {
		t.Errorf("PatrimonyNumber = %q", r.PatrimonyNumber)
	}
	if r.Description != "Cadeira giratória" {
		t.Errorf("Description = %q", r.Description)
	}
	if r.LocationText != "Sala 101" {
		t.Errorf("LocationText = %q", r.LocationText)
	}
	if r.CategoryText != "Mobiliário" {
		t.Errorf("CategoryText = %q", r.CategoryText)
	}
	if r.RawValue != "R$ 250,00" {
		t.Errorf("RawValue = %q", r.RawValue)
	}
}

func TestCSVExtract_CommaDelimited(t *testing.T) {
	input := "patrimony number,description,location,category\n" +
		"PAT-001,Office chair,Room 12,Furniture\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 1 || rows[0].LocationText != "Room 12" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestCSVExtract_SkipsBOMAndBannerRows(t *testing.T) {
	input := "\xEF\xBB\xBF" +
		"INVENTÁRIO GERAL 2026;;\n" +
		"Universidade Estadual;;\n" +
		"Patrimônio;Descrição;Sala\n" +
		"PAT-001;Cadeira;Sala 101\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].PatrimonyNumber != "PAT-001" || rows[0].LocationText != "Sala 101" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestCSVExtract_SkipsBlankRows(t *testing.T) {
	input := "Patrimônio;Descrição\n" +
		"PAT-001;Cadeira\n" +
		";\n" +
		"\n" +
		"PAT-002;Mesa\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2 (blanks skipped)", len(rows))
	}
}

func TestCSVExtract_RaggedRows(t *testing.T) {
	input := "Patrimônio;Descrição;Sala;Valor\n" +
		"PAT-001;Cadeira\n" +
		"PAT-002;Mesa;Sala 102;10,00;extra\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].LocationText != "" || rows[0].RawValue != "" {
		t.Errorf("short row = %+v, want empty trailing fields", rows[0])
	}
	if rows[1].RawValue != "10,00" {
		t.Errorf("RawValue = %q", rows[1].RawValue)
	}
}

func TestCSVExtract_InvalidUTF8Sanitized(t *testing.T) {
	// Latin-1 "é" (0xE9) is not valid UTF-8.
	input := "Patrimônio;Descrição\n" +
		"PAT-001;Cadeira confort\xe9vel\n"

	rows, err := NewCSV().Extract(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(rows[0].Description, "\xe9") {
		t.Errorf("invalid byte survived: %q", rows[0].Description)
	}
}

func TestCSVExtract_NoHeader(t *testing.T) {
	input := "a;b;c\n1;2;3\n"
	if _, err := NewCSV().Extract(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("expected error for missing header")
	}
}

func TestCSVExtract_Empty(t *testing.T) {
	if _, err := NewCSV().Extract(context.Background(), strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestCSVExtract_HeaderOnly(t *testing.T) {
	input := "Patrimônio;Descrição\n"
	if _, err := NewCSV().Extract(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("expected error for header without data")
	}
}

func TestCSVExtract_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sb strings.Builder
	sb.WriteString("Patrimônio;Descrição\n")
	for i := 0; i < 500; i++ {
		sb.WriteString("PAT-001;Cadeira\n")
	}

	if _, err := NewCSV().Extract(ctx, strings.NewReader(sb.String())); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		mime    string
		wantErr bool
	}{
		{"csv extension", "inventario.csv", "", false},
		{"txt extension", "export.txt", "", false},
		{"mime only", "upload", "text/csv; charset=utf-8", false},
		{"xlsx rejected", "inventario.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
		{"pdf rejected", "scan.pdf", "application/pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ForFile(tt.file, tt.mime)
			if (err != nil) != tt.wantErr {
				t.Errorf("ForFile(%q, %q) err = %v, wantErr %v", tt.file, tt.mime, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Nº Patrimônio", "n patrimonio"},
		{"DESCRIÇÃO", "descricao"},
		{"Valor (R$)", "valor r"},
		{"  Localização:  ", "localizacao"},
		{"Obs.", "obs"},
	}
	for _, tt := range tests {
		if got := normalizeHeader(tt.input); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
