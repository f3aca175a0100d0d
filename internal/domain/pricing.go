package domain

import (
	"fmt"
	"math"
)

// DefaultTaxRate is the flat rate applied when no override is configured.
const DefaultTaxRate = 0.08

// Fulfillment option identifiers offered on every session with an address.
const (
	FulfillmentStandardID = "ship_std"
	FulfillmentExpressID  = "ship_exp"
)

// TaxAmount computes flat tax in minor units, rounding up.
func TaxAmount(base int64, rate float64) int64 {
	if base <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(base) * rate))
}

// PriceLineItems derives priced rows from requested items against catalog products.
// The products map must contain every requested item id.
func PriceLineItems(items []Item, products map[string]Product, taxRate float64) []LineItem {
	lineItems := make([]LineItem, 0, len(items))
	for i, item := range items {
		product := products[item.ID]
		base := product.BasePrice * item.Quantity
		tax := TaxAmount(base, taxRate)
		lineItems = append(lineItems, LineItem{
			ID:         fmt.Sprintf("li_%d", i+1),
			Item:       item,
			BaseAmount: base,
			Discount:   0,
			Subtotal:   base,
			Tax:        tax,
			Total:      base + tax,
		})
	}
	return lineItems
}

// StandardFulfillmentOptions returns the shipping offers available for any
// domestic address. Options carry their own tax at the session rate.
func StandardFulfillmentOptions(taxRate float64) []FulfillmentOption {
	options := []FulfillmentOption{
		{
			ID:                  FulfillmentStandardID,
			Type:                "shipping",
			Title:               "Standard Shipping",
			Subtitle:            "5-7 business days",
			Carrier:             "UPS",
			EarliestDeliveryETA: "5-7 business days",
			Subtotal:            799,
		},
		{
			ID:                  FulfillmentExpressID,
			Type:                "shipping",
			Title:               "Express Shipping",
			Subtitle:            "2-3 business days",
			Carrier:             "FedEx",
			EarliestDeliveryETA: "2-3 business days",
			Subtotal:            1499,
		},
	}
	for i := range options {
		options[i].Tax = TaxAmount(options[i].Subtotal, taxRate)
		options[i].Total = options[i].Subtotal + options[i].Tax
	}
	return options
}

// ComputeTotals builds the ordered totals rows for the session. The tax row
// is a single ceil over the item subtotal, not the sum of per-line taxes, so
// the rows always satisfy subtotal + tax + fulfillment = total. The
// fulfillment row appears only when an option is selected and carries the
// option's own tax inside its amount.
func ComputeTotals(lineItems []LineItem, selected *FulfillmentOption, taxRate float64) []Total {
	var itemsBase, subtotal int64
	for _, li := range lineItems {
		itemsBase += li.BaseAmount
		subtotal += li.Subtotal
	}
	tax := TaxAmount(subtotal, taxRate)

	totals := []Total{
		{Type: TotalTypeItemsBaseAmount, DisplayText: "Items", Amount: itemsBase},
		{Type: TotalTypeSubtotal, DisplayText: "Subtotal", Amount: subtotal},
		{Type: TotalTypeTax, DisplayText: "Tax", Amount: tax},
	}

	grand := subtotal + tax
	if selected != nil {
		totals = append(totals, Total{Type: TotalTypeFulfillment, DisplayText: selected.Title, Amount: selected.Total})
		grand += selected.Total
	}
	totals = append(totals, Total{Type: TotalTypeTotal, DisplayText: "Total", Amount: grand})
	return totals
}
