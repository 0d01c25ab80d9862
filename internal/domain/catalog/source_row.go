package catalog

// Column order of delimited exports.
const (
	ColumnTmpID = iota
	ColumnName
	ColumnProducer
	ColumnCatalogNumber
	ColumnArtikylNumber
	ColumnApplicability
	ColumnCrossNumber
	ColumnSectionID

	ColumnCount
)

// SourceRow is one raw record of a supplier export. Any field may be empty.
type SourceRow struct {
	TmpID         string
	Name          string
	Producer      string
	CatalogNumber string
	ArtikylNumber string
	Applicability string
	CrossNumber   string
	SectionID     string
}

func SourceRowFromFields(fields []string) SourceRow {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	return SourceRow{
		TmpID:         get(ColumnTmpID),
		Name:          get(ColumnName),
		Producer:      get(ColumnProducer),
		CatalogNumber: get(ColumnCatalogNumber),
		ArtikylNumber: get(ColumnArtikylNumber),
		Applicability: get(ColumnApplicability),
		CrossNumber:   get(ColumnCrossNumber),
		SectionID:     get(ColumnSectionID),
	}
}
