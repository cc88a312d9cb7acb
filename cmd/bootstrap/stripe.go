package bootstrap

import (
	"classbook/internal/handler/api"
	"classbook/internal/infra/stripe"
	"classbook/internal/pkg/config"
	"classbook/internal/usecase/commands"

	"go.uber.org/fx"
)

var StripeModule = fx.Module("stripe",
	fx.Provide(
		fx.Annotate(
			NewStripeGateway,
			fx.As(new(commands.PaymentGateway)),
			fx.As(new(api.EventVerifier)),
		),
	),
)

func NewStripeGateway(cfg config.Config) (*stripe.Gateway, error) {
	return stripe.NewGateway(cfg.Stripe)
}
