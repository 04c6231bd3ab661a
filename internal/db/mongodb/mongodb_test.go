package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/storybooks/internal/db/storagetest"
)

// The tests need a running server, e.g. TEST_MONGO_URI=mongodb://localhost:27017
func newTestDB(t *testing.T) *MongoDB {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}

	db, err := New(
		context.Background(),
		uri,
		"storybooks_test",
		5*time.Second,
		WithDBPreReset(true),
		WithConnectRetries(1),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func Test(t *testing.T) {
	storagetest.Run(t, newTestDB(t))
}

func TestNewFailsWhenServerIsUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for server selection to time out")
	}

	_, err := New(
		context.Background(),
		"mongodb://127.0.0.1:1",
		"storybooks_test",
		200*time.Millisecond,
		WithConnectRetries(2),
	)
	require.Error(t, err)
}
