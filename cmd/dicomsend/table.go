package main

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mrsinham/dicomsend/internal/catalog"
)

func studyTable(studies []*catalog.Study) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Description", "Modalities", "Date", "Series", "Files", "Study UID"})
	for _, s := range studies {
		tw.AppendRow(table.Row{
			strconv.Itoa(s.Ordinal),
			s.Description,
			strings.Join(s.Modalities, " "),
			s.Date,
			strconv.Itoa(len(s.Series)),
			humanize.Comma(int64(s.NumberOfFiles())),
			s.UID,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
