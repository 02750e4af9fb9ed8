package report

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	baseFont   = "Arial"
	baseSize   = 10.0
	lineHeight = 5.0
	pageWidth  = 180.0
)

// pdfWriter walks a goldmark AST and draws it with fpdf's core fonts.
type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	listDepth int
	link      string
}

func (w *pdfWriter) render(doc ast.Node) error {
	return ast.Walk(doc, w.walk)
}

func (w *pdfWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(baseFont, style, baseSize)
}

func (w *pdfWriter) write(s string) {
	if w.link != "" {
		w.pdf.SetTextColor(30, 80, 180)
		w.pdf.WriteLinkString(lineHeight, w.translate(s), w.link)
		w.pdf.SetTextColor(0, 0, 0)
		return
	}
	w.pdf.Write(lineHeight, w.translate(s))
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(4)
			size := map[int]float64{1: 16, 2: 13, 3: 11}[node.Level]
			if size == 0 {
				size = baseSize
			}
			w.pdf.SetFont(baseFont, "B", size)
		} else {
			w.pdf.Ln(lineHeight + 2)
			w.setFont()
		}

	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(lineHeight + 1)
		}

	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.write(" ")
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()

	case *ast.Link:
		if entering {
			w.link = string(node.Destination)
		} else {
			w.link = ""
		}

	case *ast.AutoLink:
		if entering {
			url := string(node.URL(w.source))
			w.link = url
			w.write(url)
			w.link = ""
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", baseSize)
			w.write(string(node.Text(w.source)))
			w.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.pdf.SetX(15 + float64(w.listDepth)*4)
			w.pdf.Write(lineHeight, "- ")
		}

	case *ast.TextBlock:
		if !entering {
			w.pdf.Ln(lineHeight)
		}

	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			y := w.pdf.GetY()
			w.pdf.SetDrawColor(200, 200, 200)
			w.pdf.Line(15, y, 15+pageWidth, y)
			w.pdf.SetDrawColor(0, 0, 0)
			w.pdf.Ln(3)
		}

	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// table draws a table with equal-width columns, header row shaded.
func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.cellText(cell)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	width := pageWidth / float64(len(rows[0]))
	w.pdf.Ln(1)
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(baseFont, "B", 9)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont(baseFont, "", 9)
		}
		for j := range rows[0] {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			w.pdf.CellFormat(width, 6, w.translate(value), "1", 0, "L", i == 0, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(2)
	w.setFont()
}

func (w *pdfWriter) cellText(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := child.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(w.source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
