package bootstrap

import (
	"classbook/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	StripeModule,
	components.PersistenceModule,
	components.UseCaseModule,
	components.HandlerModule,
)
