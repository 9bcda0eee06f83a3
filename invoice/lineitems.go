package invoice

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmptyLineItemsLabel is the description rendered when no items exist.
const EmptyLineItemsLabel = "No items"

// LineItemRenderer regenerates the line-item region of a document.
type LineItemRenderer struct{}

// Render clears container and appends one row per item, or a single
// "No items" row when items is empty. Row order follows items.
func (LineItemRenderer) Render(container *html.Node, items []LineItem, symbol string) {
	if container == nil {
		return
	}
	for child := container.FirstChild; child != nil; {
		next := child.NextSibling
		container.RemoveChild(child)
		child = next
	}
	for _, row := range LineItemRows(items, symbol) {
		container.AppendChild(row)
	}
}

// LineItemRows builds detached row nodes for items.
func LineItemRows(items []LineItem, symbol string) []*html.Node {
	if len(items) == 0 {
		return []*html.Node{lineItemRow(EmptyLineItemsLabel, FormatCurrency(0, symbol))}
	}
	rows := make([]*html.Node, 0, len(items))
	for _, item := range items {
		rows = append(rows, lineItemRow(item.Description, FormatCurrency(item.Price, symbol)))
	}
	return rows
}

// RenderLineItems serializes the rows for items.
func RenderLineItems(items []LineItem, symbol string) (string, error) {
	var buf bytes.Buffer
	for _, row := range LineItemRows(items, symbol) {
		if err := html.Render(&buf, row); err != nil {
			return "", NewError(KindInternal, "render line items", err)
		}
	}
	return buf.String(), nil
}

func lineItemRow(description, price string) *html.Node {
	row := newElement(atom.Div, "table-row")

	descCol := newElement(atom.Div, "col-description")
	descText := newElement(atom.P, "item-description")
	descText.AppendChild(newText(description))
	descCol.AppendChild(descText)

	priceCol := newElement(atom.Div, "col-price")
	priceText := newElement(atom.P, "item-price")
	priceText.AppendChild(newText(price))
	priceCol.AppendChild(priceText)

	row.AppendChild(descCol)
	row.AppendChild(priceCol)
	return row
}

func newElement(tag atom.Atom, class string) *html.Node {
	node := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	if class != "" {
		node.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return node
}

func newText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}
