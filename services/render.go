package services

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// TableHeaders are the column titles of a rendered grid.
var TableHeaders = []string{"风险等级", "省", "市", "县/区", "风险地区"}

// tableWidths are the workbook column widths matching TableHeaders.
var tableWidths = []float64{15, 12, 12, 30, 60}

const newCellStyle = "color:#e60012"

// RenderHTML renders rows as an HTML table with a header row. Empty cells
// are covered by a neighbour's span and are not emitted. style is added to
// the table element as is.
func RenderHTML(rows [][]models.Cell, style string) string {
	var b strings.Builder

	b.WriteString("<table")
	if style != "" {
		fmt.Fprintf(&b, ` style="%s"`, html.EscapeString(style))
	}
	b.WriteString(">\n<thead><tr>")
	for _, h := range TableHeaders {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for _, row := range rows {
		b.WriteString("<tr>")
		for _, c := range row {
			if c.Text == "" {
				continue
			}
			b.WriteString("<td")
			if c.Rowspan > 1 {
				fmt.Fprintf(&b, ` rowspan="%d"`, c.Rowspan)
			}
			if c.Colspan > 1 {
				fmt.Fprintf(&b, ` colspan="%d"`, c.Colspan)
			}
			if c.New {
				fmt.Fprintf(&b, ` style="%s"`, newCellStyle)
			}
			fmt.Fprintf(&b, ">%s</td>", html.EscapeString(c.Text))
		}
		b.WriteString("</tr>\n")
	}

	b.WriteString("</tbody>\n</table>")
	return b.String()
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 24px; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: center; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Headline}}</p>
{{if .SourceAt}}<p>对比：{{.SourceAt}}</p>{{end}}
{{.Table}}
</body>
</html>
`))

// RenderPage renders stat as a standalone HTML document.
func RenderPage(stat *models.Statistic) (string, error) {
	data := struct {
		Title    string
		Headline string
		SourceAt string
		Table    template.HTML
	}{
		Title:    ReportTitle,
		Headline: Headline(stat),
		Table:    template.HTML(RenderHTML(stat.Rows, "")),
	}
	if stat.SourceAt != nil {
		data.SourceAt = utils.FormatMonthDayTime(*stat.SourceAt)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute page: %w", err)
	}
	return buf.String(), nil
}
