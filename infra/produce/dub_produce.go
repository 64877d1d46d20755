package produce

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DubExchange          = "dub.exchange"
	DubProcessQueue      = "dub.process"
	DubProcessRoutingKey = "dub.process"

	// DubRetryQueue holds delayed re-deliveries. Messages expire after
	// their per-message TTL and are dead-lettered back onto the process
	// queue, which gives the exponential backoff between attempts.
	DubRetryQueue      = "dub.process.retry"
	DubRetryRoutingKey = "dub.process.retry"
)

// DubJobMessage is the work item referencing one dub job. Attempt starts
// at 1 and counts deliveries of the same job record.
type DubJobMessage struct {
	JobID     string `json:"job_id"`
	VideoID   string `json:"video_id"`
	Attempt   int    `json:"attempt"`
	Timestamp int64  `json:"timestamp"`
}

// DubService handles publishing dub work items.
type DubService struct {
	channel *amqp.Channel
}

func InitDubService(channel *amqp.Channel) *DubService {
	service := &DubService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		DubExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Dub exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		DubProcessQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Dub process queue: " + err.Error())
	}

	err = channel.QueueBind(
		DubProcessQueue,
		DubProcessRoutingKey,
		DubExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Dub process queue: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		DubRetryQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    DubExchange,
			"x-dead-letter-routing-key": DubProcessRoutingKey,
		},
	)
	if err != nil {
		panic("Failed to declare Dub retry queue: " + err.Error())
	}

	err = channel.QueueBind(
		DubRetryQueue,
		DubRetryRoutingKey,
		DubExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Dub retry queue: " + err.Error())
	}

	return service
}

// PublishDubJob enqueues a work item for immediate delivery.
func (s *DubService) PublishDubJob(ctx context.Context, msg DubJobMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		DubExchange,
		DubProcessRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// PublishDubJobRetry enqueues a work item onto the retry queue; it comes
// back to the process queue after delay.
func (s *DubService) PublishDubJobRetry(ctx context.Context, msg DubJobMessage, delay time.Duration) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		DubExchange,
		DubRetryRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		},
	)
}
