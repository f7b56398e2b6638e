// Package terminal renders catalog views for the terminal client.
package terminal

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/abgdnv/inventory/internal/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	labelInStock    = "In stock"
	labelOutOfStock = "Out of stock"
	emptyMessage    = "No products yet. Add one with: inventoryctl add NAME PRICE"
)

type Renderer struct {
	printer *message.Printer
}

// NewRenderer formats numbers using the grouping rules of tag.
func NewRenderer(tag language.Tag) *Renderer {
	return &Renderer{printer: message.NewPrinter(tag)}
}

// FormatPrice renders a price in dong, e.g. "1.500 đ" for Vietnamese.
func (r *Renderer) FormatPrice(price int64) string {
	return r.printer.Sprintf("%d đ", price)
}

// Render writes one page of products as an aligned table followed by the paging footer.
func (r *Renderer) Render(w io.Writer, view catalog.View) error {
	if view.Total == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tPRICE\tSTOCK\tMARKED")
	offset := (view.Page - 1) * view.PageSize
	for i, p := range view.Items {
		stock := labelOutOfStock
		if p.InStock {
			stock = labelInStock
		}
		marked := ""
		if p.Marked {
			marked = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", offset+i+1, p.ID, p.Name, r.FormatPrice(p.Price), stock, marked)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nPage %d of %d (%d per page)  Total: %d\n", view.Page, view.TotalPages, view.PageSize, view.Total)
	return err
}
