package invoice

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestRenderLineItems_Empty(t *testing.T) {
	out, err := RenderLineItems(nil, "$")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<div class="table-row"><div class="col-description"><p class="item-description">No items</p></div>` +
		`<div class="col-price"><p class="item-price">$ 0.00</p></div></div>`
	if out != want {
		t.Fatalf("unexpected empty rendering:\n%s", out)
	}
}

func TestRenderLineItems_EscapesAndOrders(t *testing.T) {
	items := []LineItem{
		{Description: "<b>X</b>", Price: AmountOf(decimal.NewFromInt(10))},
		{Description: "B", Price: AmountOf(decimal.NewFromInt(1))},
		{Description: "B", Price: AmountOf(decimal.NewFromInt(1))},
	}
	out, err := RenderLineItems(items, "$")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<b>") {
		t.Fatalf("expected escaped markup, got %s", out)
	}
	if !strings.Contains(out, `<p class="item-description">&lt;b&gt;X&lt;/b&gt;</p>`) {
		t.Fatalf("expected escaped description, got %s", out)
	}
	if !strings.Contains(out, `<p class="item-price">$ 10.00</p>`) {
		t.Fatalf("expected formatted price, got %s", out)
	}
	if got := strings.Count(out, `class="table-row"`); got != 3 {
		t.Fatalf("expected duplicates preserved, got %d rows", got)
	}
}

func TestLineItemRenderer_ClearsContainer(t *testing.T) {
	container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	container.AppendChild(newText("stale"))
	container.AppendChild(newElement(atom.P, "old"))

	LineItemRenderer{}.Render(container, []LineItem{{Description: "A", Price: AmountOf(decimal.NewFromInt(2))}}, "৳")

	count := 0
	for child := container.FirstChild; child != nil; child = child.NextSibling {
		count++
		if child.Type != html.ElementNode || child.Data != "div" {
			t.Fatalf("unexpected child %q", child.Data)
		}
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}
