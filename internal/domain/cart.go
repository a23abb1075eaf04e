package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexibleID is an identifier the storefront API sends either as a JSON
// string or as a JSON number.
type FlexibleID string

// UnmarshalJSON accepts "42", 42 and null.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// MarshalJSON writes purely numeric ids as JSON numbers so they round-trip
// to the storefront API in the form it issued them.
func (id FlexibleID) MarshalJSON() ([]byte, error) {
	if id.isNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id FlexibleID) isNumeric() bool {
	if id == "" || len(id) > 18 || (len(id) > 1 && id[0] == '0') {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the id as a plain string.
func (id FlexibleID) String() string {
	return string(id)
}

// CartLineItem is one variant in the cart. ID is the variant id and the
// unique key of the cart; ProductID is the parent product.
type CartLineItem struct {
	ID        FlexibleID      `json:"id"`
	ProductID FlexibleID      `json:"product_id"`
	Name      string          `json:"name"`
	NameAr    string          `json:"name_ar,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Brand     string          `json:"brand,omitempty"`
	Color     string          `json:"color,omitempty"`
	Liter     string          `json:"liter,omitempty"`
	Weight    string          `json:"weight,omitempty"`
}

// Subtotal returns price multiplied by quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ResolveImageURL prefixes a relative image path with the CDN base.
// Absolute URLs and empty paths are returned unchanged.
func ResolveImageURL(cdnBase, image string) string {
	image = strings.TrimSpace(image)
	if image == "" || cdnBase == "" {
		return image
	}
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(image, "//") {
		return image
	}
	return strings.TrimRight(cdnBase, "/") + "/" + strings.TrimLeft(image, "/")
}

// CartView is the render-ready snapshot of the cart.
type CartView struct {
	Items []CartLineItem  `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}
