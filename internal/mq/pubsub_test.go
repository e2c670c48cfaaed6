package mq

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/hostrate/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakePubSub(t *testing.T) (*PubSubClient, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(context.Background(), "hostrate-test", option.WithGRPCConn(conn))
	require.NoError(t, err)

	p := newPubSubClient(client, "")
	t.Cleanup(func() {
		assert.NoError(t, p.Close())
		_ = conn.Close()
		_ = srv.Close()
	})
	return p, srv
}

func TestPubSubClient_PublishReusesTopic(t *testing.T) {
	p, srv := newFakePubSub(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, types.ChannelHostRegistered, []byte(`{"host_id":1}`), map[string]string{"event": types.ChannelHostRegistered})
	require.NoError(t, err)
	first := p.topics[types.ChannelHostRegistered]
	require.NotNil(t, first)

	_, err = p.Publish(ctx, types.ChannelHostRegistered, []byte(`{"host_id":2}`), nil)
	require.NoError(t, err)

	assert.Len(t, p.topics, 1)
	assert.Same(t, first, p.topics[types.ChannelHostRegistered])

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.ChannelHostRegistered, msgs[0].Attributes["event"])
}

func TestPubSubClient_PublishRequiresChannel(t *testing.T) {
	p, _ := newFakePubSub(t)

	_, err := p.Publish(context.Background(), " ", []byte("x"), nil)
	assert.EqualError(t, err, "pubsub channel is required")
}

func TestPubSubClient_Subscribe(t *testing.T) {
	p, _ := newFakePubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// the subscription must exist before publishing for the message to be delivered
	_, err := p.subscription(ctx, types.ChannelRatingSubmitted)
	require.NoError(t, err)

	broker := New(p)
	_, err = broker.PublishJSON(ctx, types.ChannelRatingSubmitted, types.RatingEvent{RatingID: 9, HostID: 1, Score: 5})
	require.NoError(t, err)

	var received Message
	err = broker.Subscribe(ctx, types.ChannelRatingSubmitted, func(_ context.Context, msg Message) error {
		received = msg
		cancel()
		return nil
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"rating_id":9,"host_id":1,"rater_id":0,"score":5,"occurred_at":"0001-01-01T00:00:00Z"}`, string(received.Data))
	assert.Equal(t, types.ChannelRatingSubmitted, received.Attributes["event"])
}
