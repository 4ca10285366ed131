package objectstore_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/juanvolpe/voiceJuan/internal/objectstore"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startJetStream runs an in-process JetStream server and returns a context on it.
func startJetStream(t *testing.T) nats.JetStreamContext {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	natsServer := test.RunServer(&opts)
	t.Cleanup(natsServer.Shutdown)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	return jetstreamContext
}

func TestStore_UploadDownloadDelete(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startJetStream(t), "voice-test")
	require.NoError(t, err)
	assert.Equal(t, "voice-test", store.Bucket())

	ctx := context.Background()
	audio := bytes.Repeat([]byte("RIFF"), 64*1024)

	require.NoError(t, store.Upload(ctx, "job-1.wav", audio))

	downloaded, err := store.Download(ctx, "job-1.wav")
	require.NoError(t, err)
	assert.Equal(t, audio, downloaded)

	require.NoError(t, store.Delete(ctx, "job-1.wav"))

	_, err = store.Download(ctx, "job-1.wav")
	require.ErrorIs(t, err, objectstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "job-1.wav"), "deleting a missing key is not an error")
}

func TestStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	jetstreamContext := startJetStream(t)
	ctx := context.Background()

	first, err := objectstore.New(jetstreamContext, "shared")
	require.NoError(t, err)
	require.NoError(t, first.Upload(ctx, "text.txt", []byte("Hola mundo")))

	second, err := objectstore.New(jetstreamContext, "shared")
	require.NoError(t, err)

	data, err := second.Download(ctx, "text.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", string(data))
}

func TestStore_EmptyKey(t *testing.T) {
	t.Parallel()

	store, err := objectstore.New(startJetStream(t), "keys")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Download(ctx, "")
	require.ErrorIs(t, err, objectstore.ErrEmptyKey)
	require.ErrorIs(t, store.Upload(ctx, "", []byte("x")), objectstore.ErrEmptyKey)
	require.ErrorIs(t, store.Delete(ctx, ""), objectstore.ErrEmptyKey)
}
