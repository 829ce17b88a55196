package main

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"slidebanai-backend/internal/deck"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const cellWidth = 60

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    cellWidth,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func outlineTable(o deck.Outline) string {
	rows := make([][]string, 0, len(o.Outline))
	for _, e := range o.Outline {
		rows = append(rows, []string{
			strconv.Itoa(e.SlideNumber),
			string(e.Type),
			e.Title,
			strings.Join(e.KeyPoints, "\n"),
		})
	}
	return renderTable([]string{"#", "Type", "Title", "Key points"}, rows, []columnAlignment{alignRight})
}

func slidesTable(slides []deck.DetailedSlide) string {
	rows := make([][]string, 0, len(slides))
	for _, s := range slides {
		rows = append(rows, []string{
			strconv.Itoa(s.SlideNumber),
			s.SlideType,
			s.Title,
			s.Content,
			s.BackgroundColor,
		})
	}
	return renderTable([]string{"#", "Type", "Title", "Content", "Background"}, rows, []columnAlignment{alignRight})
}
