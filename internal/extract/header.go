package extract

// header.go maps the header rows found in real inventory exports onto the
// canonical row fields. Matching is alias-based over normalized header text;
// Portuguese spellings dominate but English exports occur.

import (
	"strings"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

// column identifies one canonical raw-row field.
type column int

const (
	colPatrimony column = iota
	colDescription
	colLocation
	colCategory
	colSerial
	colBrand
	colCondition
	colValue
	colNotes
)

var columnAliases = map[column][]string{
	colPatrimony: {
		"patrimonio", "n patrimonio", "no patrimonio", "num patrimonio",
		"numero patrimonio", "numero do patrimonio", "tombamento", "tombo",
		"patrimony", "patrimony number", "asset number", "asset tag",
	},
	colDescription: {
		"descricao", "descricao do bem", "bem", "item", "denominacao",
		"description",
	},
	colLocation: {
		"localizacao", "local", "sala", "setor", "ambiente", "dependencia",
		"location", "room",
	},
	colCategory: {
		"categoria", "classe", "classificacao", "tipo", "grupo",
		"category", "class",
	},
	colSerial: {
		"serie", "n serie", "no serie", "numero de serie", "num serie",
		"serial", "serial number",
	},
	colBrand: {
		"marca", "marca modelo", "fabricante", "modelo",
		"brand", "manufacturer",
	},
	colCondition: {
		"estado", "estado de conservacao", "conservacao", "situacao",
		"condition",
	},
	colValue: {
		"valor", "valor de aquisicao", "valor unitario", "valor r", "preco",
		"value", "price",
	},
	colNotes: {
		"observacoes", "observacao", "obs", "notas",
		"notes", "remarks",
	},
}

// aliasIndex is the inverted alias table, built once at init.
var aliasIndex = func() map[string]column {
	idx := make(map[string]column)
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			idx[a] = col
		}
	}
	return idx
}()

// normalizeHeader canonicalizes one header cell for alias lookup: the usual
// text normalization plus removal of ordinal markers and punctuation
// ("Nº Patrimônio" and "patrimonio" compare equal).
func normalizeHeader(cell string) string {
	s := core.NormalizeText(cell)
	replacer := strings.NewReplacer("º", "", "°", "", ".", "", ":", "", "(", " ", ")", " ", "$", "", "/", " ")
	s = replacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// matchHeader maps a candidate header row to column positions. Returns nil
// unless at least the patrimony and description columns are recognized; a
// row matching fewer is data, not a header.
func matchHeader(cells []string) map[column]int {
	found := make(map[column]int)
	for i, cell := range cells {
		key := normalizeHeader(cell)
		if key == "" {
			continue
		}
		col, ok := aliasIndex[key]
		if !ok {
			continue
		}
		if _, dup := found[col]; !dup {
			found[col] = i
		}
	}

	if _, ok := found[colPatrimony]; !ok {
		return nil
	}
	if _, ok := found[colDescription]; !ok {
		return nil
	}
	return found
}

// rowFromRecord builds a raw row from one data record using the detected
// column layout. Missing trailing cells read as empty.
func rowFromRecord(record []string, layout map[column]int) core.RawRow {
	cell := func(col column) string {
		idx, ok := layout[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	return core.RawRow{
		PatrimonyNumber: cell(colPatrimony),
		Description:     cell(colDescription),
		LocationText:    cell(colLocation),
		CategoryText:    cell(colCategory),
		SerialNumber:    cell(colSerial),
		Brand:           cell(colBrand),
		Condition:       cell(colCondition),
		RawValue:        cell(colValue),
		Notes:           cell(colNotes),
	}
}
