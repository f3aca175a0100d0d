package domain

import "testing"

func TestTaxAmountRoundsUp(t *testing.T) {
	if got := TaxAmount(100, 0.08); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if got := TaxAmount(101, 0.08); got != 9 {
		t.Fatalf("expected ceil rounding to 9, got %d", got)
	}
	if got := TaxAmount(0, 0.08); got != 0 {
		t.Fatalf("expected 0 for zero base, got %d", got)
	}
	if got := TaxAmount(100, 0); got != 0 {
		t.Fatalf("expected 0 for zero rate, got %d", got)
	}
}

func TestPriceLineItems(t *testing.T) {
	products := map[string]Product{
		"item_123": {ID: "item_123", Title: "Widget", BasePrice: 500, Currency: "usd", Stock: 10},
	}
	items := []Item{{ID: "item_123", Quantity: 3}}

	lineItems := PriceLineItems(items, products, 0.08)
	if len(lineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(lineItems))
	}
	li := lineItems[0]
	if li.ID != "li_1" {
		t.Fatalf("unexpected line item id %q", li.ID)
	}
	if li.BaseAmount != 1500 || li.Subtotal != 1500 {
		t.Fatalf("unexpected amounts: base=%d subtotal=%d", li.BaseAmount, li.Subtotal)
	}
	if li.Tax != 120 {
		t.Fatalf("expected tax 120, got %d", li.Tax)
	}
	if li.Total != 1620 {
		t.Fatalf("expected total 1620, got %d", li.Total)
	}
}

func TestStandardFulfillmentOptions(t *testing.T) {
	options := StandardFulfillmentOptions(0.08)
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	std := options[0]
	if std.ID != FulfillmentStandardID || std.Subtotal != 799 {
		t.Fatalf("unexpected standard option: %+v", std)
	}
	if std.Tax != 64 || std.Total != 863 {
		t.Fatalf("unexpected standard option tax/total: tax=%d total=%d", std.Tax, std.Total)
	}
	exp := options[1]
	if exp.ID != FulfillmentExpressID || exp.Subtotal != 1499 {
		t.Fatalf("unexpected express option: %+v", exp)
	}
	if exp.Tax != 120 || exp.Total != 1619 {
		t.Fatalf("unexpected express option tax/total: tax=%d total=%d", exp.Tax, exp.Total)
	}
}

func TestComputeTotalsWithoutFulfillment(t *testing.T) {
	lineItems := []LineItem{
		{BaseAmount: 1000, Subtotal: 1000, Tax: 80},
		{BaseAmount: 500, Subtotal: 500, Tax: 40},
	}
	totals := ComputeTotals(lineItems, nil, 0.08)
	if len(totals) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(totals))
	}
	expectRow(t, totals[0], TotalTypeItemsBaseAmount, 1500)
	expectRow(t, totals[1], TotalTypeSubtotal, 1500)
	expectRow(t, totals[2], TotalTypeTax, 120)
	expectRow(t, totals[3], TotalTypeTotal, 1620)
}

func TestComputeTotalsWithFulfillment(t *testing.T) {
	lineItems := []LineItem{{BaseAmount: 1000, Subtotal: 1000, Tax: 80}}
	option := FulfillmentOption{ID: FulfillmentStandardID, Title: "Standard Shipping", Subtotal: 799, Tax: 64, Total: 863}

	totals := ComputeTotals(lineItems, &option, 0.08)
	if len(totals) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(totals))
	}
	expectRow(t, totals[2], TotalTypeTax, 80)
	expectRow(t, totals[3], TotalTypeFulfillment, 863)
	expectRow(t, totals[4], TotalTypeTotal, 1000+80+863)
}

func TestComputeTotalsTaxCeilsAggregateSubtotal(t *testing.T) {
	// Two 5-unit lines: per-line ceil would charge 1+1, the single ceil over
	// the 10-unit subtotal charges 1.
	lineItems := []LineItem{
		{BaseAmount: 5, Subtotal: 5, Tax: 1},
		{BaseAmount: 5, Subtotal: 5, Tax: 1},
	}
	option := FulfillmentOption{ID: FulfillmentStandardID, Title: "Standard Shipping", Subtotal: 799, Tax: 64, Total: 863}

	totals := ComputeTotals(lineItems, &option, 0.08)
	expectRow(t, totals[1], TotalTypeSubtotal, 10)
	expectRow(t, totals[2], TotalTypeTax, 1)
	expectRow(t, totals[4], TotalTypeTotal, 10+1+863)
}

func TestComputeTotalsDeterministic(t *testing.T) {
	lineItems := []LineItem{{BaseAmount: 250, Subtotal: 250, Tax: 20}}
	first := ComputeTotals(lineItems, nil, 0.08)
	second := ComputeTotals(lineItems, nil, 0.08)
	if len(first) != len(second) {
		t.Fatalf("row count differs between runs")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func expectRow(t *testing.T, row Total, rowType string, amount int64) {
	t.Helper()
	if row.Type != rowType {
		t.Fatalf("expected row type %q, got %q", rowType, row.Type)
	}
	if row.Amount != amount {
		t.Fatalf("row %s: expected amount %d, got %d", rowType, amount, row.Amount)
	}
}
