package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDocument(t *testing.T, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestNormalizeText(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  121(1) ", expected: "121(1)"},
		{input: "Иванов\n\t  И.И.", expected: "Иванов И.И."},
		{input: "a\u0000b", expected: "ab"},
		{input: " ", expected: ""},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeText(row.input))
	}
}

func TestGetAnchors(t *testing.T) {
	doc := mustDocument(t, `<html><body>
		<a class="sublevel" href=" http://rep.example.com/some/path?x=1 ">
			Замены   в расписании
		</a>
		<a href="/relative">relative <b>link</b></a>
	</body></html>`)

	anchors := GetAnchors(doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Замены в расписании", Href: "http://rep.example.com/some/path?x=1"},
		{Name: "relative link", Href: "/relative"},
	}, anchors)
}

func TestCellTexts(t *testing.T) {
	doc := mustDocument(t, `<table>
		<tr><td class="content first">1</td><td>Math<br>II</td><td></td></tr>
	</table>`)

	row := doc.Find("tr").First()
	require.Equal(t, []string{"1", "Math II", ""}, CellTexts(row))
	require.Equal(t, "content", FirstClass(row.Children().First()))
	require.Equal(t, "", FirstClass(row.Children().Last()))
}
