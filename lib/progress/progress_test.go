package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlpu/TSAT/lib/datatypes"
	messages "github.com/shlpu/TSAT/lib/kafka"
	"github.com/shlpu/TSAT/lib/settings"
)

type fakeWriter struct {
	sent   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.sent = append(f.sent, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) Close() error {
	return nil
}

type failingSink struct {
	calls int
}

func (f *failingSink) Publish(context.Context, *datatypes.ProgressEvent) error {
	f.calls++
	return errors.New("unavailable")
}

func (f *failingSink) Close() error {
	return nil
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(2)
	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, &datatypes.ProgressEvent{Kind: datatypes.TRAIN_STARTED}))
	require.NoError(t, sink.Publish(ctx, &datatypes.ProgressEvent{Kind: datatypes.TRAIN_FINISHED}))
	require.NoError(t, sink.Close())

	var kinds []datatypes.EventKind
	for e := range sink.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []datatypes.EventKind{datatypes.TRAIN_STARTED, datatypes.TRAIN_FINISHED}, kinds)
}

func TestChannelSinkHonorsContext(t *testing.T) {
	sink := NewChannelSink(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Publish(ctx, &datatypes.ProgressEvent{}), context.Canceled)
}

func TestMulti(t *testing.T) {
	failing := &failingSink{}
	channel := NewChannelSink(1)
	m := Multi{failing, LogSink{}, channel}
	err := m.Publish(context.Background(), &datatypes.ProgressEvent{RunID: "r", Kind: datatypes.ITERATION})
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Len(t, channel.Events(), 1)
	assert.NoError(t, m.Close())
}

func TestKafkaSink(t *testing.T) {
	writer := &fakeWriter{}
	config := settings.RPMSettings{Folds: 3}.ComputeSettingsFields()
	sink := &KafkaSink{config: config, writer: writer}
	ctx := context.Background()

	require.NoError(t, sink.Publish(ctx, &datatypes.ProgressEvent{RunID: "run-1", Kind: datatypes.TRAIN_STARTED}))
	require.NoError(t, sink.Publish(ctx, &datatypes.ProgressEvent{
		RunID:     "run-1",
		Kind:      datatypes.ITERATION,
		Iteration: 1,
		Evaluated: map[datatypes.ParamPoint]float64{{Window: 20, PAA: 4, Alphabet: 4}: 0.25},
	}))
	require.NoError(t, sink.Close())
	assert.True(t, writer.closed)
	require.Len(t, writer.sent, 2)
	assert.Equal(t, "run-1", string(writer.sent[0].Key))

	var started messages.ProgressMessage
	require.NoError(t, json.Unmarshal(writer.sent[0].Value, &started))
	require.NotNil(t, started.Settings)
	assert.Equal(t, 3, started.Settings.Folds)

	var iteration messages.ProgressMessage
	require.NoError(t, decodeProgressMessage(writer.sent[1], &iteration))
	assert.Nil(t, iteration.Settings)
	assert.Equal(t, 1, iteration.Event.Iteration)
	assert.Equal(t, 0.25, iteration.Event.Evaluated[datatypes.ParamPoint{Window: 20, PAA: 4, Alphabet: 4}])
}

func TestFollow(t *testing.T) {
	writer := &fakeWriter{}
	sink := &KafkaSink{config: settings.RPMSettings{}, writer: writer}
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, sink.Publish(ctx, &datatypes.ProgressEvent{RunID: "run-2", Kind: datatypes.ITERATION, Iteration: i}))
	}
	msgs := append([]kafka.Message{{Key: []byte("junk"), Value: []byte("{")}}, writer.sent...)

	followCtx, cancel := context.WithCancel(context.Background())
	out := NewChannelSink(10)
	err := follow(followCtx, &fakeReader{msgs: msgs, cancel: cancel}, out)
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, out.Close())

	var iterations []int
	for e := range out.Events() {
		iterations = append(iterations, e.Iteration)
	}
	assert.Equal(t, []int{1, 2, 3}, iterations)
}
