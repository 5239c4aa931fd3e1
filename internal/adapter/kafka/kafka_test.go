package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	fetchedAt := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	e := domain.NewEarthquake(6.2, "10km NE of Example City", 1500000000000, "http://example.com/1")

	msg, err := serializeToMessage(e, fetchedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("http://example.com/1"), msg.Key)
	assert.JSONEq(t, `{"magnitude":6.2,"location":"10km NE of Example City","time":1500000000000,"url":"http://example.com/1"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, kafkago.Header{Key: "magnitude", Value: []byte("6.2")}, msg.Headers[0])
	assert.Equal(t, kafkago.Header{Key: "fetched_at", Value: []byte("2024-04-26T15:10:00Z")}, msg.Headers[1])
}

func TestSerializeToMessage_FetchedAtIsUTC(t *testing.T) {
	fetchedAt := time.Date(2024, 4, 27, 0, 10, 0, 0, time.FixedZone("JST", 9*60*60))

	msg, err := serializeToMessage(domain.NewEarthquake(1, "", 0, ""), fetchedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[1].Value)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker1:9092", "broker2:9092"}, KafkaTopic: "earthquakes"}

	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "earthquakes", w.writer.Topic)
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
	assert.NotNil(t, w.writer.Addr)
}

func TestWriter_LoadBatch_EmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "earthquakes"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.LoadBatch(context.Background(), domain.Batch{Outcome: domain.OutcomeEmpty}))
}
