package domain

import (
	"strings"
	"time"
)

// CheckoutStatus enumerates the lifecycle states of a checkout session.
type CheckoutStatus string

const (
	// StatusNotReadyForPayment indicates the session is missing address or fulfillment selection.
	StatusNotReadyForPayment CheckoutStatus = "not_ready_for_payment"
	// StatusReadyForPayment indicates the session can be completed.
	StatusReadyForPayment CheckoutStatus = "ready_for_payment"
	// StatusCompleted indicates payment succeeded and an order exists.
	StatusCompleted CheckoutStatus = "completed"
	// StatusCanceled indicates the session was canceled before completion.
	StatusCanceled CheckoutStatus = "canceled"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s CheckoutStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Item is a requested product reference with quantity.
type Item struct {
	ID       string
	Quantity int64
}

// LineItem is a priced row derived from an Item against the catalog.
type LineItem struct {
	ID         string
	Item       Item
	BaseAmount int64
	Discount   int64
	Subtotal   int64
	Tax        int64
	Total      int64
}

// Buyer holds optional purchaser contact details.
type Buyer struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
}

// Address is a fulfillment destination.
type Address struct {
	Name       string
	LineOne    string
	LineTwo    string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Empty reports whether the address carries no routable information.
func (a Address) Empty() bool {
	return strings.TrimSpace(a.LineOne) == "" && strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Country) == "" && strings.TrimSpace(a.PostalCode) == ""
}

// FulfillmentOption is a shipping offer computed for a session.
type FulfillmentOption struct {
	ID                  string
	Type                string
	Title               string
	Subtitle            string
	Carrier             string
	EarliestDeliveryETA string
	Subtotal            int64
	Tax                 int64
	Total               int64
}

// Total is one display row of the session totals table.
type Total struct {
	Type        string
	DisplayText string
	Amount      int64
}

// Total row types, emitted in this order.
const (
	TotalTypeItemsBaseAmount = "items_base_amount"
	TotalTypeSubtotal        = "subtotal"
	TotalTypeTax             = "tax"
	TotalTypeFulfillment     = "fulfillment"
	TotalTypeTotal           = "total"
)

// Message carries informational or error text surfaced to the buyer agent.
type Message struct {
	Type        string
	Code        string
	ContentType string
	Content     string
	Param       string
}

// Link is a typed URL attached to a session payload.
type Link struct {
	Type string
	URL  string
}

// PaymentProvider describes the PSP surface offered on a ready session.
type PaymentProvider struct {
	Provider                string
	SupportedPaymentMethods []string
}

// OrderRef is the compact order reference embedded in a completed session.
type OrderRef struct {
	ID                string
	CheckoutSessionID string
	PermalinkURL      string
}

// CheckoutSession is the aggregate tracked through the checkout lifecycle.
type CheckoutSession struct {
	ID                  string
	Status              CheckoutStatus
	Currency            string
	Items               []Item
	LineItems           []LineItem
	Buyer               *Buyer
	FulfillmentAddress  *Address
	FulfillmentOptions  []FulfillmentOption
	FulfillmentOptionID string
	Totals              []Total
	Messages            []Message
	Links               []Link
	PaymentProvider     *PaymentProvider
	Order               *OrderRef
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int64
}

// SelectedOption returns the fulfillment option matching FulfillmentOptionID, if any.
func (s CheckoutSession) SelectedOption() (FulfillmentOption, bool) {
	if s.FulfillmentOptionID == "" {
		return FulfillmentOption{}, false
	}
	for _, opt := range s.FulfillmentOptions {
		if opt.ID == s.FulfillmentOptionID {
			return opt, true
		}
	}
	return FulfillmentOption{}, false
}

// Order is the durable record produced by completing a session.
type Order struct {
	ID                 string
	CheckoutSessionID  string
	PermalinkURL       string
	Status             string
	Currency           string
	LineItems          []LineItem
	Totals             []Total
	Buyer              *Buyer
	FulfillmentAddress *Address
	CreatedAt          time.Time
}

// OrderStatusCreated is the initial (and currently only) order status.
const OrderStatusCreated = "created"

// Product is a catalog entry priced in minor units.
type Product struct {
	ID        string
	Title     string
	BasePrice int64
	Currency  string
	Stock     int64
}
