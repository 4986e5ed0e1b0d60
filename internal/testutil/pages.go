package testutil

import "strings"

// Section is a group section of a replacements page, Rows are the content
// rows following the column header row.
type Section struct {
	Name string
	Rows [][]string
}

// ReplacesPage builds a replacements page in the layout served by the site.
func ReplacesPage(header string, sections ...Section) []byte {
	var out strings.Builder
	out.WriteString(`<html><body><table>`)
	out.WriteString(`<tr><td class="header">` + header + `</td></tr>`)
	for _, s := range sections {
		out.WriteString(`<tr><td class="section">` + s.Name + `</td></tr>`)
		writeRow(&out, []string{"№ пары", "Заменяемая дисциплина", "Заменяющий преподаватель", "Заменяющая дисциплина", "Ауд."})
		for _, row := range s.Rows {
			writeRow(&out, row)
		}
	}
	out.WriteString(`<tr><td class="footer">Заместитель директора по УР</td></tr>`)
	out.WriteString(`</table></body></html>`)
	return []byte(out.String())
}

func writeRow(out *strings.Builder, cells []string) {
	out.WriteString("<tr>")
	for _, c := range cells {
		out.WriteString(`<td class="content">` + c + `</td>`)
	}
	out.WriteString("</tr>")
}
