package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText removes non-printable characters, trims the string and
// collapses runs of whitespace into a single space.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}

// Text is GetText followed by NormalizeText.
func Text(node *html.Node) string {
	return NormalizeText(GetText(node))
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns the normalized visible text and href of every node in `sel`,
// anchors with an unparsable href are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}

		anchors = append(anchors, Anchor{
			Name: Text(n),
			Href: link.String(),
		})
	}
	return anchors
}

// FirstClass returns the first class listed in the class attribute of `sel`.
func FirstClass(sel *goquery.Selection) string {
	classes := strings.Fields(sel.AttrOr("class", ""))
	if len(classes) == 0 {
		return ""
	}
	return classes[0]
}

// CellTexts returns the normalized text of every direct element child of a row.
func CellTexts(row *goquery.Selection) []string {
	cells := row.Children()
	out := make([]string, 0, cells.Length())
	for _, n := range cells.Nodes {
		out = append(out, Text(n))
	}
	return out
}
