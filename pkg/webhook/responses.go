package webhook

// SyncResponse is a payload a sync webhook answers with.
type SyncResponse interface {
	Event() Event
}

type TaxLine struct {
	TotalGrossAmount float64 `json:"total_gross_amount"`
	TotalNetAmount   float64 `json:"total_net_amount"`
	TaxRate          float64 `json:"tax_rate"`
}

// TaxResponse answers CHECKOUT_CALCULATE_TAXES.
type TaxResponse struct {
	ShippingPriceGrossAmount float64   `json:"shipping_price_gross_amount"`
	ShippingPriceNetAmount   float64   `json:"shipping_price_net_amount"`
	ShippingTaxRate          float64   `json:"shipping_tax_rate"`
	Lines                    []TaxLine `json:"lines"`
}

func (TaxResponse) Event() Event { return CheckoutCalculateTaxes }

// OrderTaxResponse answers ORDER_CALCULATE_TAXES.
type OrderTaxResponse TaxResponse

func (OrderTaxResponse) Event() Event { return OrderCalculateTaxes }

type ExcludedMethod struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// FilterShippingResponse answers CHECKOUT_FILTER_SHIPPING_METHODS.
type FilterShippingResponse struct {
	ExcludedMethods []ExcludedMethod `json:"excluded_methods"`
}

func (FilterShippingResponse) Event() Event { return CheckoutFilterShippingMethods }

// OrderFilterShippingResponse answers ORDER_FILTER_SHIPPING_METHODS.
type OrderFilterShippingResponse FilterShippingResponse

func (OrderFilterShippingResponse) Event() Event { return OrderFilterShippingMethods }

type ShippingMethod struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Amount              float64 `json:"amount"`
	Currency            string  `json:"currency"`
	MaximumDeliveryDays *int    `json:"maximum_delivery_days,omitempty"`
	MinimumDeliveryDays *int    `json:"minimum_delivery_days,omitempty"`
	Description         string  `json:"description,omitempty"`
}

// ShippingMethods answers SHIPPING_LIST_METHODS_FOR_CHECKOUT with a bare array.
type ShippingMethods []ShippingMethod

func (ShippingMethods) Event() Event { return ShippingListMethodsForCheckout }

type ChargeResult string

const (
	ChargeSuccess ChargeResult = "CHARGE_SUCCESS"
	ChargeFailure ChargeResult = "CHARGE_FAILURE"
)

// ChargeResponse answers TRANSACTION_CHARGE_REQUESTED. Result empty means
// the charge is still pending on the PSP side.
type ChargeResponse struct {
	PSPReference string       `json:"pspReference"`
	Result       ChargeResult `json:"result,omitempty"`
	Amount       *float64     `json:"amount,omitempty"`
	Time         string       `json:"time,omitempty"`
	ExternalURL  string       `json:"externalUrl,omitempty"`
	Message      string       `json:"message,omitempty"`
}

func (ChargeResponse) Event() Event { return TransactionChargeRequested }
