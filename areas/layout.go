package areas

import (
	"fmt"

	"covid-risk-areas/models"
)

// Layout lays groups out as a table. Each tree depth becomes a column: a
// group of size n occupies n rows of its column, the first one holding
// "name(n)" with Rowspan n and the rest left empty, and each area leaf
// fills one row of the last column with its Addr. Equal adjacent texts in
// a row are then merged horizontally, see MergeRow.
//
// Every row has the same number of slots. Empty input yields an empty grid.
func Layout(groups []*models.AreaGroup) [][]models.Cell {
	var cols [][]models.Cell
	for _, g := range groups {
		cols = fillColumns(cols, g, 0)
	}

	height := 0
	for _, col := range cols {
		if len(col) > height {
			height = len(col)
		}
	}
	if height == 0 {
		return [][]models.Cell{}
	}

	rows := make([][]models.Cell, height)
	for i := range rows {
		row := make([]models.Cell, len(cols))
		for d, col := range cols {
			if i < len(col) {
				row[d] = col[i]
			} else {
				row[d] = placeholder(nil)
			}
		}
		MergeRow(row)
		rows[i] = row
	}
	return rows
}

func fillColumns(cols [][]models.Cell, n models.Node, depth int) [][]models.Cell {
	for len(cols) <= depth {
		cols = append(cols, nil)
	}

	switch n := n.(type) {
	case *models.AreaGroup:
		for i := 0; i < n.Size; i++ {
			if i == 0 {
				cols[depth] = append(cols[depth], models.Cell{
					Text:    fmt.Sprintf("%s(%d)", n.Name, n.Size),
					Rowspan: n.Size,
					Colspan: 1,
					Origin:  n,
				})
				continue
			}
			cols[depth] = append(cols[depth], placeholder(n))
		}
		for _, child := range n.Groups {
			cols = fillColumns(cols, child, depth+1)
		}
		for i := range n.Areas {
			cols = fillColumns(cols, &n.Areas[i], depth+1)
		}
	case *models.Area:
		cols[depth] = append(cols[depth], models.Cell{
			Text:    n.Addr,
			Rowspan: 1,
			Colspan: 1,
			Origin:  n,
		})
	}
	return cols
}

func placeholder(origin models.Node) models.Cell {
	return models.Cell{Rowspan: 1, Colspan: 1, Origin: origin}
}

// MergeRow collapses each run of adjacent cells with equal non-empty text
// into its first cell, widening its Colspan and emptying the rest. Running
// it again on a merged row changes nothing.
func MergeRow(row []models.Cell) {
	for i := 0; i < len(row); i++ {
		if row[i].Text == "" {
			continue
		}
		j := i + 1
		for j < len(row) && row[j].Text == row[i].Text {
			row[i].Colspan++
			row[j].Text = ""
			j++
		}
		i = j - 1
	}
}

// Visible returns the cells of row that a renderer emits.
func Visible(row []models.Cell) []models.Cell {
	out := make([]models.Cell, 0, len(row))
	for _, c := range row {
		if c.Text != "" {
			out = append(out, c)
		}
	}
	return out
}
