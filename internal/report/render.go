package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"retailetl/internal/config"
)

// Render writes the report as aligned text tables. The seller ranking is
// truncated to cfg.SellerPreview rows; everything else prints in full.
func Render(w io.Writer, rep Report, cfg config.Report) {
	fmt.Fprintf(w, "total revenue: %.2f\n\n", rep.TotalRevenue)

	products := tablewriter.NewWriter(w)
	products.SetHeader([]string{"product_id", "revenue"})
	for _, p := range rep.TopProducts {
		products.Append([]string{p.ProductID, money(p.Revenue)})
	}
	products.Render()

	payments := tablewriter.NewWriter(w)
	payments.SetHeader([]string{"payment_type", "orders", "total"})
	for _, b := range rep.Payments {
		payments.Append([]string{b.PaymentType, strconv.FormatInt(b.Orders, 10), money(b.Total)})
	}
	payments.Render()

	sellers := tablewriter.NewWriter(w)
	sellers.SetHeader([]string{"seller_id", "product_id", "price", "rank"})
	shown := rep.SellerTop
	if cfg.SellerPreview > 0 && len(shown) > cfg.SellerPreview {
		shown = shown[:cfg.SellerPreview]
	}
	for _, it := range shown {
		sellers.Append([]string{it.SellerID, it.ProductID, money(it.Price), strconv.FormatInt(it.Rank, 10)})
	}
	sellers.Render()
	if n := len(rep.SellerTop) - len(shown); n > 0 {
		fmt.Fprintf(w, "(%d more seller rows not shown)\n", n)
	}

	customers := tablewriter.NewWriter(w)
	customers.SetHeader([]string{"customer_id", "orders"})
	for _, c := range rep.TopCustomers {
		customers.Append([]string{c.CustomerID, strconv.FormatInt(c.Orders, 10)})
	}
	customers.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
