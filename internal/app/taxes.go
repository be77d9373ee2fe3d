package app

import (
	"math"

	"holiapp/pkg/webhook"
)

type money struct {
	Amount float64 `json:"amount"`
}

type taxLine struct {
	Quantity   int   `json:"quantity"`
	TotalPrice money `json:"totalPrice"`
}

type taxBase struct {
	PricesEnteredWithTax bool      `json:"pricesEnteredWithTax"`
	Currency             string    `json:"currency"`
	ShippingPrice        money     `json:"shippingPrice"`
	Lines                []taxLine `json:"lines"`
}

type taxPayload struct {
	TaxBase taxBase `json:"taxBase"`
}

// calculateTaxes applies one flat rate (percent) to every line and shipping.
func calculateTaxes(base taxBase, rate float64) webhook.TaxResponse {
	gross, net := split(base.ShippingPrice.Amount, rate, base.PricesEnteredWithTax)
	resp := webhook.TaxResponse{
		ShippingPriceGrossAmount: gross,
		ShippingPriceNetAmount:   net,
		ShippingTaxRate:          rate,
		Lines:                    make([]webhook.TaxLine, 0, len(base.Lines)),
	}
	for _, l := range base.Lines {
		gross, net := split(l.TotalPrice.Amount, rate, base.PricesEnteredWithTax)
		resp.Lines = append(resp.Lines, webhook.TaxLine{TotalGrossAmount: gross, TotalNetAmount: net, TaxRate: rate})
	}
	return resp
}

func split(amount, rate float64, withTax bool) (gross, net float64) {
	factor := 1 + rate/100
	if withTax {
		return round2(amount), round2(amount / factor)
	}
	return round2(amount * factor), round2(amount)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
