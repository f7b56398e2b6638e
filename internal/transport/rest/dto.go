package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	ierrors "github.com/abgdnv/inventory/internal/errors"
)

// ProductCreateDto is the body of POST /api/v1/products.
// InStock defaults to true when omitted.
type ProductCreateDto struct {
	Name    string     `json:"name"    validate:"required"`
	Price   PriceInput `json:"price"   validate:"required"`
	InStock *bool      `json:"inStock"`
}

// PageDto is the body of PUT /api/v1/page. Out of range pages are clamped.
type PageDto struct {
	Page int `json:"page"`
}

// PageSizeDto is the body of PUT /api/v1/page-size.
type PageSizeDto struct {
	PageSize int `json:"pageSize" validate:"required,oneof=3 5 10 20"`
}

// PriceInput is the raw price text. It accepts a JSON string or a JSON number.
// Numbers are rounded to whole units here and must come out positive;
// strings are left to catalog.ParsePrice.
type PriceInput string

func (p *PriceInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or a number: %w", err)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return &ierrors.ValidationError{Field: "price", Reason: "must be a finite number"}
	}
	rounded := math.Round(f)
	if rounded <= 0 {
		return &ierrors.ValidationError{Field: "price", Reason: "must be positive"}
	}
	*p = PriceInput(strconv.FormatInt(int64(rounded), 10))
	return nil
}
