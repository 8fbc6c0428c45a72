// Package receipt renders a committed sale into printable documents. All
// functions are pure: they read the data they are handed and mutate nothing.
package receipt

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"warungpos/backend/internal/domain"
)

// Data is everything a receipt needs. Customer fields stay empty for
// anonymous sales; optional company fields stay empty when unconfigured.
// Empty optional fields are omitted from the output, never rendered as
// blank placeholders.
type Data struct {
	Company       domain.CompanyProfile
	Sale          domain.Sale
	Lines         []domain.SaleLine
	CustomerName  string
	CustomerPhone string
}

// receiptHTMLTmpl is the printable receipt markup. User-controlled fields are
// auto-escaped by html/template.
var receiptHTMLTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": FormatCents,
}).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.Sale.Number}}</title>
<style>
body { font-family: "Courier New", monospace; font-size: 12px; width: 280px; margin: 0 auto; }
h1 { font-size: 14px; text-align: center; margin: 4px 0; }
p.center { text-align: center; margin: 2px 0; }
table { width: 100%; border-collapse: collapse; }
td.amount { text-align: right; }
hr { border: none; border-top: 1px dashed #000; }
</style>
</head>
<body onload="window.print(); window.close();">
<h1>{{.Company.Name}}</h1>
{{if .Company.Address}}<p class="center">{{.Company.Address}}</p>{{end}}
{{if .Company.Phone}}<p class="center">{{.Company.Phone}}</p>{{end}}
{{if .Company.Email}}<p class="center">{{.Company.Email}}</p>{{end}}
{{if .Company.TaxID}}<p class="center">Tax ID: {{.Company.TaxID}}</p>{{end}}
<hr>
<table>
<tr><td>No</td><td class="amount">{{.Sale.Number}}</td></tr>
<tr><td>Date</td><td class="amount">{{.Sale.CreatedAt.Format "2006-01-02 15:04:05"}}</td></tr>
{{if .CustomerName}}<tr><td>Customer</td><td class="amount">{{.CustomerName}}</td></tr>{{end}}
{{if .CustomerPhone}}<tr><td>Phone</td><td class="amount">{{.CustomerPhone}}</td></tr>{{end}}
</table>
<hr>
<table>
{{range .Lines}}
<tr><td colspan="2">{{.Name}}</td></tr>
<tr><td>{{.Qty}} x {{money .UnitPriceCents}}</td><td class="amount">{{money .LineTotalCents}}</td></tr>
{{end}}
</table>
<hr>
<table>
<tr><td>Subtotal</td><td class="amount">{{money .Sale.TotalCents}}</td></tr>
<tr><td><strong>Total</strong></td><td class="amount"><strong>{{money .Sale.TotalCents}}</strong></td></tr>
<tr><td>Payment</td><td class="amount">{{.Sale.PaymentMethod}}</td></tr>
{{if .Sale.WalletPhone}}<tr><td>Wallet</td><td class="amount">{{.Sale.WalletPhone}}</td></tr>{{end}}
<tr><td>Tendered</td><td class="amount">{{money .Sale.TenderedCents}}</td></tr>
<tr><td>Change</td><td class="amount">{{money .Sale.ChangeCents}}</td></tr>
</table>
<hr>
<p class="center">Thank you for your purchase!</p>
{{if .Company.Website}}<p class="center">{{.Company.Website}}</p>{{end}}
</body>
</html>
`))

// RenderHTML produces the markup dispatched to the print surface.
func RenderHTML(d Data) (string, error) {
	var buf strings.Builder
	if err := receiptHTMLTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

// RenderText produces the fixed-width preview printed by an ESC/POS bridge.
func RenderText(d Data) []string {
	lines := []string{
		d.Company.Name,
		"========================",
	}
	if d.Company.Address != "" {
		lines = append(lines, d.Company.Address)
	}
	if d.Company.Phone != "" {
		lines = append(lines, d.Company.Phone)
	}
	lines = append(lines,
		"No   : "+d.Sale.Number,
		"Date : "+d.Sale.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if d.CustomerName != "" {
		lines = append(lines, "Cust : "+d.CustomerName)
	}
	lines = append(lines, "------------------------")
	for _, item := range d.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Qty))
		lines = append(lines, fmt.Sprintf("  %d @ %s = %s", item.Qty, FormatCents(item.UnitPriceCents), FormatCents(item.LineTotalCents)))
	}
	lines = append(lines,
		"------------------------",
		"Subtotal : "+FormatCents(d.Sale.TotalCents),
		"Total    : "+FormatCents(d.Sale.TotalCents),
		"Payment  : "+d.Sale.PaymentMethod,
	)
	if d.Sale.WalletPhone != "" {
		lines = append(lines, "Wallet   : "+d.Sale.WalletPhone)
	}
	lines = append(lines,
		"Tendered : "+FormatCents(d.Sale.TenderedCents),
		"Change   : "+FormatCents(d.Sale.ChangeCents),
		"========================",
		"Thank you for your purchase!",
	)
	if d.Company.Website != "" {
		lines = append(lines, d.Company.Website)
	}
	lines = append(lines, "")
	return lines
}

// RenderEscposBase64 wraps the text preview in ESC/POS init and partial-cut
// commands for a local printer bridge.
func RenderEscposBase64(d Data) string {
	escpos := []byte{0x1b, 0x40}
	for _, line := range RenderText(d) {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)
	return base64.StdEncoding.EncodeToString(escpos)
}

// FormatCents renders integer cents with a thousands separator and two
// decimals, e.g. 1234550 -> "12,345.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		grouped.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if grouped.Len() > 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteString(digits[i : i+3])
	}
	return fmt.Sprintf("%s%s.%02d", sign, grouped.String(), frac)
}
