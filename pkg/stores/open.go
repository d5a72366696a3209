package stores

import (
	"context"
	"fmt"

	"github.com/openfroyo/urigraph/pkg/config"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// Open returns the store selected by settings.
func Open(ctx context.Context, settings config.StoreSettings, metrics *telemetry.Metrics) (Store, error) {
	switch settings.Driver {
	case "", "memory":
		return NewMemoryStore(metrics), nil
	case "sqlite":
		return OpenSQLite(ctx, Config{Path: settings.Path, Metrics: metrics})
	default:
		return nil, fmt.Errorf("unknown store driver %q", settings.Driver)
	}
}
