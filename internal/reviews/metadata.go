package reviews

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	labeledBlockSelector = "div.PBK6be > div"
	labeledPartSelector  = "span.RfDO5c"
	inlineKeySelector    = "b"
)

type metadataPair struct {
	key   string
	value string
}

// ExtractAttributes runs both metadata passes over a review's inner HTML and
// feeds every pair through set. Labeled blocks go first, so an inline pair
// with the same key wins.
func ExtractAttributes(html string, set *AttributeSet) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse review HTML: %w", err)
	}

	for _, p := range labeledPairs(doc) {
		set.Set(p.key, p.value)
	}
	for _, p := range inlinePairs(doc) {
		set.Set(p.key, p.value)
	}

	return nil
}

// labeledPairs reads blocks rendered as a label span followed by a value span.
func labeledPairs(doc *goquery.Document) []metadataPair {
	var pairs []metadataPair

	doc.Find(labeledBlockSelector).Each(func(_ int, block *goquery.Selection) {
		parts := block.Find(labeledPartSelector)
		if parts.Length() < 2 {
			return
		}
		pairs = append(pairs, metadataPair{
			key:   cleanText(parts.Eq(0).Text()),
			value: cleanText(parts.Eq(1).Text()),
		})
	})

	return pairs
}

// inlinePairs reads "Key: Value" runs where the key is bold and the value is
// the text that follows it up to the next bold key.
func inlinePairs(doc *goquery.Document) []metadataPair {
	var pairs []metadataPair

	doc.Find(inlineKeySelector).Each(func(_ int, bold *goquery.Selection) {
		key := cleanText(bold.Text())
		if key == "" || len(bold.Nodes) == 0 {
			return
		}

		var b strings.Builder
		for n := bold.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
			if n.Type == html.ElementNode && n.Data == inlineKeySelector {
				break
			}
			b.WriteString(nodeText(n))
		}
		rest := cleanText(b.String())

		if !strings.HasSuffix(key, ":") && !strings.HasPrefix(rest, ":") {
			return
		}
		value := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		value = strings.TrimSpace(strings.TrimSuffix(value, "|"))

		pairs = append(pairs, metadataPair{key: key, value: value})
	})

	return pairs
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
