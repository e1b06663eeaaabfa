package snapshot

import (
	"context"
	"log/slog"
	"os"
	"testing"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	pnats "github.com/abgdnv/bathifarms/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
)

const natsImg = "nats:2.11.6-alpine"

// KVStoreSuite runs the snapshot store against a JetStream key-value bucket.
type KVStoreSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	natsContainer *nats.NATSContainer
	nc            *natsgo.Conn
	js            jetstream.JetStream
	store         *KVStore
}

func (s *KVStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.nc, err = natsgo.Connect(natsURL)
	require.NoError(s.T(), err, "Failed to connect to NATS")

	s.js, err = pnats.NewJetStreamContext(s.nc)
	require.NoError(s.T(), err, "Failed to get JetStream context")

	s.store, err = NewKVStore(s.ctx, s.js, "carts")
	require.NoError(s.T(), err, "Failed to create key-value store")
}

func (s *KVStoreSuite) TearDownSuite() {
	s.nc.Close()
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.logger.Error("Failed to terminate NATS container", "error", err)
	}
}

func TestKVStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(KVStoreSuite))
}

func (s *KVStoreSuite) TestRoundTrip() {
	// given
	key := "bathiFarmsCart.2b1e6c1a-0d57-4b8e-9a3c-7f6a4f0e1d22"

	// when
	err := s.store.Save(s.ctx, key, []byte(`[{"id":"milk","name":"Fresh Milk","price":420,"quantity":3,"image":""}]`))

	// then
	require.NoError(s.T(), err)
	payload, err := s.store.Load(s.ctx, key)
	require.NoError(s.T(), err)
	require.JSONEq(s.T(), `[{"id":"milk","name":"Fresh Milk","price":420,"quantity":3,"image":""}]`, string(payload))
}

func (s *KVStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(s.ctx, "bathiFarmsCart.none")
	require.ErrorIs(s.T(), err, carterrors.ErrSnapshotNotFound)
}

func (s *KVStoreSuite) TestDelete() {
	// given
	key := "bathiFarmsCart.deleted"
	require.NoError(s.T(), s.store.Save(s.ctx, key, []byte(`[]`)))

	// when
	err := s.store.Delete(s.ctx, key)

	// then
	require.NoError(s.T(), err)
	_, err = s.store.Load(s.ctx, key)
	require.ErrorIs(s.T(), err, carterrors.ErrSnapshotNotFound)
}
