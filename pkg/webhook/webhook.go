// Package webhook describes the webhooks the app subscribes to and the
// payload shapes sync webhooks must answer with.
package webhook

import (
	"net/http"
	"strings"

	"holiapp/pkg/problems"
)

// Event is a platform webhook event name.
type Event string

const (
	OrderCreated                   Event = "ORDER_CREATED"
	OrderUpdated                   Event = "ORDER_UPDATED"
	CheckoutCalculateTaxes         Event = "CHECKOUT_CALCULATE_TAXES"
	OrderCalculateTaxes            Event = "ORDER_CALCULATE_TAXES"
	CheckoutFilterShippingMethods  Event = "CHECKOUT_FILTER_SHIPPING_METHODS"
	OrderFilterShippingMethods     Event = "ORDER_FILTER_SHIPPING_METHODS"
	ShippingListMethodsForCheckout Event = "SHIPPING_LIST_METHODS_FOR_CHECKOUT"
	TransactionChargeRequested     Event = "TRANSACTION_CHARGE_REQUESTED"
)

type Kind int

const (
	Async Kind = iota
	Sync
)

func (k Kind) String() string {
	if k == Sync {
		return "sync"
	}
	return "async"
}

// Definition is one webhook subscription served by the app.
type Definition struct {
	Name  string
	Event Event
	Kind  Kind
	// Path is the route relative to the app base URL, e.g. /api/webhooks/order-created.
	Path string
	// Query is the subscription query defining the payload; empty means the
	// platform default payload.
	Query    string
	IsActive bool
}

// NewAsync defines an async webhook.
func NewAsync(name string, event Event, path, query string) Definition {
	return Definition{Name: name, Event: event, Kind: Async, Path: path, Query: query, IsActive: true}
}

// Matches reports whether the event header names this webhook's event.
// The comparison ignores case.
func (d Definition) Matches(event string) bool {
	return event != "" && strings.EqualFold(event, string(d.Event))
}

// ManifestEntry is how a webhook is announced in the app manifest.
type ManifestEntry struct {
	Name        string   `json:"name"`
	AsyncEvents []string `json:"asyncEvents,omitempty"`
	SyncEvents  []string `json:"syncEvents,omitempty"`
	Query       string   `json:"query,omitempty"`
	TargetURL   string   `json:"targetUrl"`
	IsActive    bool     `json:"isActive"`
}

// Manifest renders the entry, targeting baseURL+Path.
func (d Definition) Manifest(baseURL string) ManifestEntry {
	e := ManifestEntry{
		Name:      d.Name,
		Query:     d.Query,
		TargetURL: strings.TrimRight(baseURL, "/") + d.Path,
		IsActive:  d.IsActive,
	}
	if d.Kind == Sync {
		e.SyncEvents = []string{string(d.Event)}
	} else {
		e.AsyncEvents = []string{string(d.Event)}
	}
	return e
}

// SyncWebhook is a sync webhook definition bound to the response shape its
// event expects.
type SyncWebhook[T SyncResponse] struct {
	Definition
}

// NewSync defines a sync webhook; the event is taken from T.
func NewSync[T SyncResponse](name, path, query string) SyncWebhook[T] {
	var zero T
	return SyncWebhook[T]{Definition: Definition{
		Name: name, Event: zero.Event(), Kind: Sync, Path: path, Query: query, IsActive: true,
	}}
}

// Respond writes v as the synchronous answer.
func (s SyncWebhook[T]) Respond(w http.ResponseWriter, v T) {
	problems.WriteJSON(w, v, http.StatusOK)
}
