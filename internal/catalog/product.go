// Package catalog holds the product list, its pagination state and the rules that change them.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	ierrors "github.com/abgdnv/inventory/internal/errors"
)

// Product is a single inventory item. Price is stored in the smallest currency unit.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	InStock bool   `json:"inStock"`
	Marked  bool   `json:"marked"`
}

// UnmarshalJSON accepts ids encoded as JSON strings or numbers and
// fractional prices, which older payloads contain.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Name    string          `json:"name"`
		Price   json.Number     `json:"price"`
		InStock bool            `json:"inStock"`
		Marked  bool            `json:"marked"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}

	var price int64
	if raw.Price != "" {
		f, err := raw.Price.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid price %q", raw.Price)
		}
		if f < 0 || f >= math.MaxInt64 {
			return fmt.Errorf("price out of range: %s", raw.Price)
		}
		price = int64(math.Round(f))
	}

	*p = Product{
		ID:      id,
		Name:    strings.TrimSpace(raw.Name),
		Price:   price,
		InStock: raw.InStock,
		Marked:  raw.Marked,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid product id %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// ParsePrice drops every character that is not an ASCII digit and reads the rest
// as an integer, so grouped input such as "1.500" or "1,500 đ" yields 1500.
func ParsePrice(raw string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, &ierrors.ValidationError{Field: "price", Reason: "must be a number"}
	}
	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, &ierrors.ValidationError{Field: "price", Reason: "must be a finite number"}
	}
	if price <= 0 {
		return 0, &ierrors.ValidationError{Field: "price", Reason: "must be positive"}
	}
	return price, nil
}
