package placewatch

import (
	"context"
	"fmt"

	"github.com/cognicore/placewatch/pkg/placewatch/config"
	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
	"github.com/cognicore/placewatch/pkg/placewatch/store"
	"github.com/cognicore/placewatch/pkg/placewatch/store/postgres"
	"github.com/cognicore/placewatch/pkg/placewatch/store/sqlite"
)

// OpenStore opens the backend named by the configuration.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return sqlite.Open(ctx, cfg.Database.Path)
	case "postgres":
		return postgres.Open(ctx, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q",
			internalerr.ErrInvalidConfig, cfg.Database.Driver)
	}
}
