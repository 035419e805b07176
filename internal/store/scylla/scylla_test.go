package scylla_test

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/IgoorDrt/ErroOps-v1/internal/snowflake"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/scylla"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/storetest"
)

// Set SCYLLA_TEST_HOSTS=localhost:9042 to run against a live cluster.
func TestStore(t *testing.T) {
	hosts := os.Getenv("SCYLLA_TEST_HOSTS")
	if hosts == "" {
		t.Skip("SCYLLA_TEST_HOSTS not set")
	}

	session, err := scylla.Connect(strings.Split(hosts, ","), "chat_test", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	require.NoError(t, scylla.Migrate(session))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	storetest.Run(t, scylla.New(session, node))
}
