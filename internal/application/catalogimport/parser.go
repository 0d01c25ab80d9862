package catalogimport

import (
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

// Column names per field; the second name is the truncated DBF variant.
var recordColumns = [catalog.ColumnCount][]string{
	catalog.ColumnTmpID:         {"TMP_ID"},
	catalog.ColumnName:          {"NAME"},
	catalog.ColumnProducer:      {"PROPERTY_PRODUCER_ID", "PROPERTY_P"},
	catalog.ColumnCatalogNumber: {"PROPERTY_TMC_NUMBER", "PROPERTY_T"},
	catalog.ColumnArtikylNumber: {"PROPERTY_ARTIKYL_NUMBER", "PROPERTY_A"},
	catalog.ColumnApplicability: {"PROPERTY_MODEL_AVTO", "PROPERTY_M"},
	catalog.ColumnCrossNumber:   {"PROPERTY_CROSS_NUMBER", "PROPERTY_C"},
	catalog.ColumnSectionID:     {"SECTION_ID"},
}

var sectionCleaner = strings.NewReplacer("[", "", "]", "", ";", "")

// ParseLine turns one delimited line into a row. Short lines are padded.
func ParseLine(line, delim string) catalog.SourceRow {
	row := catalog.SourceRowFromFields(splitLine(line, delim))
	row.SectionID = CleanSectionID(row.SectionID)
	return row
}

// ParseRecord maps a structured record keyed by column name.
func ParseRecord(record map[string]string) catalog.SourceRow {
	fields := make([]string, catalog.ColumnCount)
	for i, names := range recordColumns {
		for _, name := range names {
			if value, ok := record[name]; ok {
				fields[i] = strings.TrimSpace(value)
				break
			}
		}
	}
	row := catalog.SourceRowFromFields(fields)
	row.SectionID = CleanSectionID(row.SectionID)
	return row
}

func CleanSectionID(section string) string {
	return strings.TrimSpace(sectionCleaner.Replace(section))
}

// IsHeaderLine reports whether a line is the column header of an export.
func IsHeaderLine(line, delim string) bool {
	fields := splitLine(line, delim)
	return len(fields) > 0 && strings.EqualFold(fields[0], "TMP_ID")
}

func splitLine(line, delim string) []string {
	line = strings.TrimRight(line, "\r\n")
	if delim == "" {
		return []string{strings.TrimSpace(line)}
	}
	line = strings.TrimRight(line, delim)
	if strings.TrimSpace(line) == "" {
		return nil
	}

	fields := strings.Split(line, delim)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
