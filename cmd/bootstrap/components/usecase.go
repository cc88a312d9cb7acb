package components

import (
	"classbook/internal/pkg/clock"
	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewPaymentMethodResolver,
		commands.NewBookingUseCase,
		commands.NewSettlementUseCase,
		commands.NewSubscriptionUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewLessonQueries,
		queries.NewBookingQueries,
		queries.NewClassPassQueries,
	),
)
