// Package receipt renders customer order receipts as PDF.
package receipt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tux-order-services/internal/checkout"
	"tux-order-services/internal/money"
	"tux-order-services/internal/submission"

	"github.com/phpdave11/gofpdf"
)

const RestaurantName = "TUX"

type Line struct {
	Quantity int
	Name     string
	Extras   []string
	Total    string
}

// Data is everything printed on a receipt, already formatted.
type Data struct {
	OrderNumber  string
	Fulfillment  string
	CustomerName string
	Phone        string
	Address      string
	Zone         string
	PlacedAt     string
	Items        []Line
	Subtotal     string
	DeliveryFee  string
	Total        string
	Payment      string
	Cash         string
	Instapay     string
	Instructions string
}

// FromRecord formats a stored order. orderNo falls back to the order id
// until the order has been numbered.
func FromRecord(orderID, orderNo string, rec submission.OrderRecord, loc *time.Location) Data {
	if loc == nil {
		loc = time.UTC
	}
	number := strings.TrimSpace(orderNo)
	if number == "" || number == submission.POSOrderNoPending {
		number = orderID
	}

	d := Data{
		OrderNumber:  number,
		Fulfillment:  "Pickup",
		CustomerName: rec.CustomerName,
		Phone:        rec.Phone,
		Subtotal:     money.FormatCurrency(rec.Subtotal),
		Total:        money.FormatCurrency(rec.Total),
		Payment:      checkout.PaymentMethod(rec.PaymentMethod).Label(),
		Instructions: strings.TrimSpace(rec.Instructions),
	}
	if !rec.CreatedAt.IsZero() {
		d.PlacedAt = rec.CreatedAt.In(loc).Format("02 Jan 2006 15:04")
	}
	if rec.Fulfillment == string(checkout.FulfillmentDelivery) {
		d.Fulfillment = "Delivery"
		d.Address = rec.Address
		d.Zone = rec.DeliveryZone
		d.DeliveryFee = money.FormatCurrency(rec.DeliveryFee)
	}
	if checkout.PaymentMethod(rec.PaymentMethod) == checkout.PaymentSplit {
		d.Cash = money.FormatCurrency(rec.PaymentBreakdown.Cash)
		d.Instapay = money.FormatCurrency(rec.PaymentBreakdown.Instapay)
	}
	for _, item := range rec.Cart {
		line := Line{Quantity: item.Quantity, Name: item.Name, Total: money.FormatCurrency(item.LineTotal)}
		for _, extra := range item.Extras {
			line.Extras = append(line.Extras, fmt.Sprintf("%s (+%s)", extra.Name, money.FormatCurrency(extra.Price)))
		}
		d.Items = append(d.Items, line)
	}
	return d
}

// Render lays the receipt out on a single A4 page.
func Render(data Data) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, RestaurantName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Order %s", data.OrderNumber)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.Fulfillment, "", 1, "C", false, 0, "")
	if data.PlacedAt != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", data.PlacedAt), "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.CellFormat(0, 5, tr(data.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, data.Phone, "", 1, "L", false, 0, "")
	if data.Address != "" {
		pdf.MultiCell(0, 4, tr(data.Address), "", "L", false)
	}
	if data.Zone != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Zone: %s", data.Zone)), "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range data.Items {
		pdf.CellFormat(140, 5, tr(fmt.Sprintf("%dx %s", item.Quantity, item.Name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, item.Total, "", 1, "R", false, 0, "")
		for _, extra := range item.Extras {
			pdf.CellFormat(0, 4, tr("  + "+extra), "", 1, "L", false, 0, "")
		}
		pdf.Ln(1)
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s", data.Subtotal), "", 1, "L", false, 0, "")
	if data.DeliveryFee != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Delivery: %s", data.DeliveryFee), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s", data.Total), "", 1, "L", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", data.Payment), "", 1, "L", false, 0, "")
	if data.Cash != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Cash: %s / Instapay: %s", data.Cash, data.Instapay), "", 1, "L", false, 0, "")
	}
	if data.Instructions != "" {
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("Notes: %s", data.Instructions)), "", "L", false)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Filename is the download name for an order's receipt.
func Filename(orderNumber string) string {
	clean := strings.Trim(unsafeFilename.ReplaceAllString(orderNumber, "_"), "_")
	if clean == "" {
		clean = "order"
	}
	return "receipt-" + clean + ".pdf"
}
