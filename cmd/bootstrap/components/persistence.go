package components

import (
	"classbook/internal/infra/db"
	"classbook/internal/infra/readstore"
	"classbook/internal/infra/repository"
	"classbook/internal/infra/uow"
	"classbook/internal/usecase/commands"
	"classbook/internal/usecase/queries"
	"classbook/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
	),
	readstoreModule,
	repositoryModule,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			readstore.NewLessonReadStore,
			fx.As(new(queries.LessonReadStore)),
		),
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
			fx.As(new(commands.BookingViewReader)),
		),
		fx.Annotate(
			readstore.NewClassPassReadStore,
			fx.As(new(queries.ClassPassReadStore)),
		),
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
		fx.Annotate(
			repository.NewIdempotencyRepository,
			fx.As(new(shared.IdempotencyRepository)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
