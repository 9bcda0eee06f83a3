package invoice

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	fieldIndexOnce sync.Once
	fieldIndex     map[string]int
)

func invoiceFieldIndex() map[string]int {
	fieldIndexOnce.Do(func() {
		typ := reflect.TypeOf(InvoiceData{})
		fieldIndex = make(map[string]int, typ.NumField())
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" || name == "-" || name == "extra" {
				continue
			}
			fieldIndex[name] = i
		}
	})
	return fieldIndex
}

// Field resolves a binding name against the record. The boolean is false
// when the field is unknown, null, or an empty string.
func (d InvoiceData) Field(name string) (any, bool) {
	if idx, ok := invoiceFieldIndex()[name]; ok {
		value := reflect.ValueOf(d).Field(idx).Interface()
		return presentValue(value)
	}
	if d.Extra != nil {
		if value, ok := d.Extra[name]; ok {
			return presentValue(value)
		}
	}
	return nil, false
}

func presentValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case Money:
		if !v.Valid {
			return nil, false
		}
		return v.Decimal, true
	case []LineItem:
		return v, true
	default:
		return v, true
	}
}

// fieldText renders a present field value as plain text.
func fieldText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
