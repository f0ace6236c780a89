package page

import "git.home.luguber.info/inful/docsite/internal/docmodel"

// MetadataRow is one row of the page metadata table.
type MetadataRow struct {
	Label string
	Value string
}

// MetadataRows lists the present metadata fields. Created and Last Updated
// mention their author when known.
func MetadataRows(m docmodel.Metadata) []MetadataRow {
	var rows []MetadataRow
	if m.Author != "" {
		rows = append(rows, MetadataRow{Label: "Author", Value: m.Author})
	}
	if m.Created != "" {
		rows = append(rows, MetadataRow{Label: "Created", Value: by(m.Created, m.CreatedBy)})
	}
	if m.LastUpdated != "" {
		rows = append(rows, MetadataRow{Label: "Last Updated", Value: by(m.LastUpdated, m.LastUpdatedBy)})
	}
	return rows
}

func by(date, who string) string {
	if who == "" {
		return date
	}
	return date + " by " + who
}
