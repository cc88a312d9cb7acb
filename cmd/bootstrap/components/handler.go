package components

import (
	"classbook/internal/handler"
	"classbook/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		api.NewLessonHandler,
		api.NewClassPassHandler,
		api.NewWebhookHandler,
	),
	fx.Invoke(handler.NewRouter),
)
