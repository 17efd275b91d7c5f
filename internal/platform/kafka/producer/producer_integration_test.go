//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"shebuilds/internal/platform/kafka/producer"
	"shebuilds/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) TestProduceIsAcknowledged() {
	ctx := context.Background()
	topic := "shebuilds.test.produce"
	s.Require().NoError(s.producer.EnsureTopic(ctx, topic, 1, 1))
	s.Require().NoError(s.producer.EnsureTopic(ctx, topic, 1, 1), "second create is a no-op")

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("credential-0"),
		Value:   []byte(`{"type":"CredentialIssued"}`),
		Headers: map[string]string{"event_type": "CredentialIssued"},
	})
	s.Require().NoError(err)

	record := s.kafka.WaitForRecord(ctx, topic, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "credential-0"
	})
	s.Require().NotNil(record)
	s.Equal(`{"type":"CredentialIssued"}`, string(record.Value))
}

func (s *ProducerIntegrationSuite) TestProduceAfterClose() {
	prod, err := producer.New(producer.Config{Brokers: s.kafka.Brokers}, nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	err = prod.Produce(context.Background(), &producer.Message{Topic: "x"})
	s.ErrorIs(err, producer.ErrClosed)
}
