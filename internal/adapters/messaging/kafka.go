package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaOptions параметры подключения к Kafka
type KafkaOptions struct {
	Brokers         []string
	GroupID         string
	ClientID        string
	AutoOffsetReset string
	SessionTimeout  time.Duration
	PollTimeout     time.Duration
}

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer       *kafka.Producer
	subscriptions  map[string]func() error
	consumersMutex sync.Mutex
	opts           KafkaOptions
	logger         interfaces.LoggerPort
	wg             sync.WaitGroup
}

// NewKafkaMessaging создает producer и запускает обработку отчетов о доставке
func NewKafkaMessaging(opts KafkaOptions, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	if opts.ClientID == "" {
		opts.ClientID = "aura-hub"
	}
	if opts.AutoOffsetReset == "" {
		opts.AutoOffsetReset = "latest"
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 10 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 100 * time.Millisecond
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(opts.Brokers, ","),
		"client.id":         opts.ClientID + "-producer",
		"acks":              "all",
		"retries":           5,
		"retry.backoff.ms":  500,
		"compression.type":  "snappy",
		"linger.ms":         10,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	k := &KafkaMessaging{
		producer:      producer,
		subscriptions: make(map[string]func() error),
		opts:          opts,
		logger:        logger.WithField("component", "kafka"),
	}

	k.wg.Add(1)
	go k.deliveryReports()

	return k, nil
}

// deliveryReports логирует ошибки асинхронной доставки
func (k *KafkaMessaging) deliveryReports() {
	defer k.wg.Done()
	for ev := range k.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				k.logger.Error("Сообщение не доставлено",
					"topic", topicName(e), "error", e.TopicPartition.Error.Error())
			}
		case kafka.Error:
			k.logger.Error("Ошибка Kafka producer", "error", e.Error())
		}
	}
}

func topicName(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}

// messageToKafkaMessage формирует kafka.Message со служебными заголовками
func messageToKafkaMessage(topic string, message []byte, key string, headers map[string]string) *kafka.Message {
	kafkaHeaders := make([]kafka.Header, 0, len(headers)+2)
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	kafkaHeaders = append(kafkaHeaders,
		kafka.Header{Key: "message_id", Value: []byte(uuid.New().String())},
		kafka.Header{Key: "timestamp", Value: []byte(strconv.FormatInt(time.Now().UnixNano(), 10))},
	)

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          message,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// kafkaMessageToMessage преобразует kafka.Message в Message
func kafkaMessageToMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	publishedAt := msg.Timestamp
	if tsStr, ok := headers["timestamp"]; ok {
		if ns, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			publishedAt = time.Unix(0, ns)
		}
	}

	return &interfaces.Message{
		ID:          headers["message_id"],
		Topic:       topicName(msg),
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		PublishedAt: publishedAt,
	}
}

// Publish публикует сообщение в указанный топик
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return k.PublishWithKey(ctx, topic, "", message, nil)
}

// PublishWithKey публикует сообщение с ключом и заголовками
func (k *KafkaMessaging) PublishWithKey(ctx context.Context, topic, key string, message []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := k.producer.Produce(messageToKafkaMessage(topic, message, key, headers), nil); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe подписывается на топик. Смещение фиксируется только после
// успешной обработки, ошибка обработчика логируется и сообщение пропускается.
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":     strings.Join(k.opts.Brokers, ","),
		"group.id":              k.opts.GroupID,
		"client.id":             k.opts.ClientID + "-consumer",
		"auto.offset.reset":     k.opts.AutoOffsetReset,
		"enable.auto.commit":    false,
		"session.timeout.ms":    int(k.opts.SessionTimeout.Milliseconds()),
		"heartbeat.interval.ms": 3000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("ошибка подписки на топик %s: %w", topic, err)
	}

	id := uuid.New().String()

	consumeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.consumeMessages(consumeCtx, consumer, handler)
	}()

	var once sync.Once
	unsubscribe := func() error {
		var closeErr error
		once.Do(func() {
			cancel()
			<-done
			k.consumersMutex.Lock()
			delete(k.subscriptions, id)
			k.consumersMutex.Unlock()
			closeErr = consumer.Close()
		})
		return closeErr
	}

	k.consumersMutex.Lock()
	k.subscriptions[id] = unsubscribe
	k.consumersMutex.Unlock()

	return unsubscribe, nil
}

// consumeMessages читает сообщения, пока не отменен контекст
func (k *KafkaMessaging) consumeMessages(ctx context.Context, consumer *kafka.Consumer, handler interfaces.MessageHandler) {
	pollMs := int(k.opts.PollTimeout.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := consumer.Poll(pollMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			msg := kafkaMessageToMessage(e)
			if err := handler(ctx, msg); err != nil {
				k.logger.Error("Ошибка обработки сообщения",
					"topic", msg.Topic, "message_id", msg.ID, "error", err.Error())
			}
			if _, err := consumer.CommitMessage(e); err != nil {
				k.logger.Warn("Не удалось зафиксировать смещение",
					"topic", msg.Topic, "error", err.Error())
			}

		case kafka.Error:
			k.logger.Error("Ошибка Kafka consumer", "code", e.Code().String(), "error", e.Error())
			if e.Code() == kafka.ErrAllBrokersDown {
				return
			}
		}
	}
}

// EnsureTopics создает топики, если их еще нет
func (k *KafkaMessaging) EnsureTopics(ctx context.Context, partitions, replicationFactor int, topics ...string) error {
	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("ошибка создания Kafka admin client: %w", err)
	}
	defer adminClient.Close()

	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, topic := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}

	result, err := adminClient.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("ошибка создания топиков: %w", err)
	}

	for _, r := range result {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("ошибка создания топика %s: %s", r.Topic, r.Error.String())
		}
	}

	return nil
}

// Close закрывает потребителей и дожидается отправки сообщений producer
func (k *KafkaMessaging) Close() error {
	k.consumersMutex.Lock()
	unsubscribes := make([]func() error, 0, len(k.subscriptions))
	for _, unsubscribe := range k.subscriptions {
		unsubscribes = append(unsubscribes, unsubscribe)
	}
	k.consumersMutex.Unlock()

	for _, unsubscribe := range unsubscribes {
		if err := unsubscribe(); err != nil {
			k.logger.Warn("Ошибка закрытия consumer", "error", err.Error())
		}
	}

	k.producer.Flush(15 * 1000)
	k.producer.Close()
	k.wg.Wait()

	return nil
}

var (
	_ interfaces.MessagingPort = (*KafkaMessaging)(nil)
	_ KeyedPublisher           = (*KafkaMessaging)(nil)
)
