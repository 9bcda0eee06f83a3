package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Binding annotation attributes.
const (
	FieldAttr    = "data-field"
	CurrencyAttr = "data-currency"
)

// DefaultImageBase is the absolute path template images are served from.
const DefaultImageBase = "/templates/images/"

const relativeImagePrefix = "./images/"

// BindingKind is how a binding point receives its value.
type BindingKind int

const (
	// TextContent replaces the element's children with a text node.
	TextContent BindingKind = iota
	// InputValue sets the element's value.
	InputValue
	unsupportedBinding
)

func (k BindingKind) String() string {
	switch k {
	case TextContent:
		return "text"
	case InputValue:
		return "value"
	default:
		return "unsupported"
	}
}

// MissingValue is the placeholder for absent text-bearing fields.
const MissingValue = "-"

// Warning is a non-fatal binding condition.
type Warning struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnMissingContainer   = "missing_container"
	WarnUnsupportedElement = "unsupported_element"
)

// Binding is the populated markup plus any warnings raised on the way.
type Binding struct {
	Markup   string
	Warnings []Warning
}

type bindingPoint struct {
	node     *html.Node
	field    string
	currency bool
	kind     BindingKind
}

// FieldBinder substitutes annotated binding points with invoice values.
// Each call parses a fresh tree, so Bind is pure over its inputs.
type FieldBinder struct {
	ImageBase string
	LineItems LineItemRenderer
	Logger    Logger
}

// Bind populates markup with data.
func (b FieldBinder) Bind(markup string, data InvoiceData) (Binding, error) {
	logger := loggerOrNop(b.Logger)

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Binding{}, NewError(KindValidation, "parse template markup", err)
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return Binding{}, NewError(KindValidation, "template markup has no body", nil)
	}

	imageBase := b.ImageBase
	if imageBase == "" {
		imageBase = DefaultImageBase
	}

	points := make([]bindingPoint, 0, 16)
	walk(body, func(node *html.Node) {
		if node.DataAtom == atom.Img {
			normalizeImage(node, imageBase)
		}
		field, ok := attr(node, FieldAttr)
		if !ok || field == "" {
			return
		}
		_, currency := attr(node, CurrencyAttr)
		points = append(points, bindingPoint{
			node:     node,
			field:    field,
			currency: currency,
			kind:     resolveBindingKind(node),
		})
	})

	symbol := data.CurrencySymbol()
	result := Binding{}
	foundItems := false

	for _, point := range points {
		removeAttr(point.node, FieldAttr)
		removeAttr(point.node, CurrencyAttr)

		if point.field == LineItemsField {
			foundItems = true
			b.LineItems.Render(point.node, data.LineItems, symbol)
			continue
		}

		if point.kind == unsupportedBinding {
			warning := Warning{
				Code:    WarnUnsupportedElement,
				Field:   point.field,
				Message: fmt.Sprintf("binding on <%s> is not supported", point.node.Data),
			}
			logger.Warnf("invoice binder: %s", warning.Message)
			result.Warnings = append(result.Warnings, warning)
			continue
		}

		value, present := data.Field(point.field)
		if !present {
			if point.kind == TextContent {
				setText(point.node, MissingValue)
			}
			continue
		}

		text := fieldText(value)
		if point.currency {
			text = FormatCurrency(value, symbol)
		}
		switch point.kind {
		case TextContent:
			setText(point.node, text)
		case InputValue:
			setValue(point.node, text)
		}
	}

	if !foundItems {
		warning := Warning{
			Code:    WarnMissingContainer,
			Field:   LineItemsField,
			Message: "line items container not found in template",
		}
		logger.Warnf("invoice binder: %s", warning.Message)
		result.Warnings = append(result.Warnings, warning)
	}

	var buf bytes.Buffer
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return Binding{}, NewError(KindInternal, "serialize populated markup", err)
		}
	}
	result.Markup = buf.String()
	return result, nil
}

func resolveBindingKind(node *html.Node) BindingKind {
	switch node.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return InputValue
	case atom.Img, atom.Br, atom.Hr, atom.Meta, atom.Link, atom.Source, atom.Wbr,
		atom.Area, atom.Base, atom.Col, atom.Embed, atom.Track, atom.Script, atom.Style:
		return unsupportedBinding
	default:
		return TextContent
	}
}

func normalizeImage(node *html.Node, base string) {
	for i, a := range node.Attr {
		if a.Key == "src" && strings.HasPrefix(a.Val, relativeImagePrefix) {
			node.Attr[i].Val = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(a.Val, relativeImagePrefix)
		}
	}
}

func setText(node *html.Node, text string) {
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		node.RemoveChild(child)
		child = next
	}
	node.AppendChild(newText(text))
}

func setValue(node *html.Node, value string) {
	switch node.DataAtom {
	case atom.Textarea:
		setText(node, value)
		return
	case atom.Select:
		selectOption(node, value)
		return
	}
	for i, a := range node.Attr {
		if a.Key == "value" {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: "value", Val: value})
}

// selectOption marks the option whose value (or label) matches; options
// are never rewritten.
func selectOption(node *html.Node, value string) {
	walk(node, func(option *html.Node) {
		if option.DataAtom != atom.Option {
			return
		}
		removeAttr(option, "selected")
		optionValue, ok := attr(option, "value")
		if !ok {
			optionValue = strings.TrimSpace(textContent(option))
		}
		if optionValue == value {
			option.Attr = append(option.Attr, html.Attribute{Key: "selected"})
		}
	})
}

func textContent(node *html.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
		b.WriteString(textContent(child))
	}
	return b.String()
}

func attr(node *html.Node, key string) (string, bool) {
	if node.Type != html.ElementNode {
		return "", false
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func removeAttr(node *html.Node, key string) {
	filtered := node.Attr[:0]
	for _, a := range node.Attr {
		if a.Key != key {
			filtered = append(filtered, a)
		}
	}
	node.Attr = filtered
}

func walk(node *html.Node, visit func(*html.Node)) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			visit(child)
		}
		walk(child, visit)
	}
}

func findElement(node *html.Node, tag atom.Atom) *html.Node {
	if node.Type == html.ElementNode && node.DataAtom == tag {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}
