package progress

import (
	"context"
	"encoding/json"
	"log"

	kafka "github.com/segmentio/kafka-go"

	"github.com/shlpu/TSAT/lib/datatypes"
	messages "github.com/shlpu/TSAT/lib/kafka"
	"github.com/shlpu/TSAT/lib/settings"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// A KafkaSink publishes events as json messages keyed by run id, so all
// events of one run land on the same partition in order.
type KafkaSink struct {
	config settings.RPMSettings
	writer messageWriter
}

func NewKafkaSink(config settings.RPMSettings) *KafkaSink {
	return &KafkaSink{
		config: config,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(config.KafkaURL),
			Topic:    config.KafkaTopic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (k *KafkaSink) encodeProgressMessage(e *datatypes.ProgressEvent) ([]byte, error) {
	msg := messages.ProgressMessage{Event: *e}
	if e.Kind == datatypes.TRAIN_STARTED {
		msg.Settings = &k.config
	}
	return json.Marshal(&msg)
}

func decodeProgressMessage(msg kafka.Message, progress *messages.ProgressMessage) error {
	return json.Unmarshal(msg.Value, progress)
}

func (k *KafkaSink) Publish(ctx context.Context, e *datatypes.ProgressEvent) error {
	value, err := k.encodeProgressMessage(e)
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.RunID), Value: value})
	if err != nil {
		log.Printf("failed to send progress message for run %s: %v\n", e.RunID, err)
	}
	return err
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// Follow reads progress messages from the topic of config and publishes
// their events to out until ctx is done. Undecodable messages are skipped.
func Follow(ctx context.Context, config settings.RPMSettings, groupID string, out Sink) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{config.KafkaURL},
		GroupID: groupID,
		Topic:   config.KafkaTopic,
	})
	return follow(ctx, reader, out)
}

func follow(ctx context.Context, reader messageReader, out Sink) error {
	defer reader.Close()
	log.Println("waiting for progress messages")
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("error getting progress message: %v\n", err)
			continue
		}
		progress := &messages.ProgressMessage{}
		if err := decodeProgressMessage(msg, progress); err != nil {
			log.Printf("failed to decode progress message with key %s: %v\n", string(msg.Key), err)
			continue
		}
		if progress.Settings != nil {
			log.Printf("run %s started with settings %+v\n", progress.Event.RunID, *progress.Settings)
		}
		if err := out.Publish(ctx, &progress.Event); err != nil {
			return err
		}
	}
}
