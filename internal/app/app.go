// Package app wires the HTTP surface of the service: registration, the
// manifest, example webhooks and protected endpoints.
package app

import (
	"go.uber.org/zap"

	"holiapp/internal/adminapi"
	"holiapp/internal/register"
	"holiapp/pkg/allowlist"
	"holiapp/pkg/apl"
	"holiapp/pkg/config"
	"holiapp/pkg/logger"
	"holiapp/pkg/platform"
	"holiapp/pkg/signature"
	"holiapp/pkg/token"
	"holiapp/pkg/webhook"
)

// App holds the shared dependencies of the handlers.
type App struct {
	cfg      config.Config
	log      *zap.SugaredLogger
	apl      apl.APL
	platform *platform.Client
	tokens   *token.Verifier
	remote   *signature.RemoteVerifier
	register *register.Handler
	admin    *adminapi.App

	orderCreated  webhook.Definition
	checkoutTaxes webhook.SyncWebhook[webhook.TaxResponse]
}

func New(cfg config.Config, log *zap.SugaredLogger, store apl.APL, pc *platform.Client, rules []allowlist.Rule) *App {
	return &App{
		cfg:      cfg,
		log:      logger.OrNop(log),
		apl:      store,
		platform: pc,
		tokens:   token.NewVerifier(pc.HTTPClient()),
		remote:   signature.NewRemoteVerifier(pc.HTTPClient()),
		register: register.New(register.Options{
			APL:       store,
			Platform:  pc,
			AllowList: rules,
			Log:       logger.OrNop(log),
		}),
		orderCreated: webhook.NewAsync("Order created", webhook.OrderCreated,
			"/api/webhooks/order-created", orderCreatedQuery),
		checkoutTaxes: webhook.NewSync[webhook.TaxResponse]("Checkout calculate taxes",
			"/api/webhooks/checkout-calculate-taxes", checkoutTaxesQuery),
	}
}

// WithAdmin mounts the admin API under /admin.
func (a *App) WithAdmin(admin *adminapi.App) *App {
	a.admin = admin
	return a
}

// webhooks lists the subscriptions announced in the manifest.
func (a *App) webhooks() []webhook.Definition {
	return []webhook.Definition{a.orderCreated, a.checkoutTaxes.Definition}
}

const orderCreatedQuery = `subscription {
  event {
    ... on OrderCreated {
      order { id number userEmail total { gross { amount currency } } }
    }
  }
}`

const checkoutTaxesQuery = `subscription {
  event {
    ... on CalculateTaxes {
      taxBase {
        pricesEnteredWithTax
        currency
        shippingPrice { amount }
        lines { quantity totalPrice { amount } }
      }
    }
  }
}`
