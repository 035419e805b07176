package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/IgoorDrt/ErroOps-v1/internal/store/postgres"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/storetest"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a docker daemon")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("chat"),
		tcpostgres.WithUsername("chat"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if container != nil {
			if err := container.Terminate(context.Background()); err != nil {
				t.Errorf("terminate: %s", err)
			}
		}
	})
	if err != nil {
		t.Skipf("failed to start container: %s", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(db))
	require.NoError(t, postgres.Migrate(db))

	storetest.Run(t, postgres.NewStore(db))
}
