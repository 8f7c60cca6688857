package queue

import (
	"fmt"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/hibiken/asynq"
)

// QueueName returns the asynq queue for a channel and priority, e.g.
// "email:urgent". Each channel gets its own queue family so a slow provider
// cannot starve the others, and priority is realized as queue weight.
func QueueName(ch notification.Channel, p notification.Priority) string {
	if p == "" {
		p = notification.PriorityNormal
	}
	return fmt.Sprintf("%s:%s", ch, p)
}

// channelQueues returns the weighted queue map for one channel's server.
// Urgent work is drained roughly 8x as often as low-priority work; ties
// within a queue are FIFO by enqueue time.
func channelQueues(ch notification.Channel) map[string]int {
	return map[string]int{
		QueueName(ch, notification.PriorityUrgent): 8,
		QueueName(ch, notification.PriorityHigh):   4,
		QueueName(ch, notification.PriorityNormal): 2,
		QueueName(ch, notification.PriorityLow):    1,
	}
}

// RedisOpt builds the asynq Redis connection options.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}

// NewClient creates a new asynq client connected to Redis.
func NewClient(opt asynq.RedisClientOpt) *asynq.Client {
	return asynq.NewClient(opt)
}

// NewChannelServer creates an asynq server for one channel: its own bounded
// concurrency and its own weighted priority queues, with retry delays taken
// from the channel's explicit delivery policy rather than asynq defaults.
func NewChannelServer(opt asynq.RedisClientOpt, ch notification.Channel, policy notification.DeliveryPolicy) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: policy.Concurrency,
		Queues:      channelQueues(ch),
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			return policy.Backoff(n)
		},
	})
}

var _ notification.Enqueuer = (*Enqueuer)(nil)

// Enqueuer adapts the asynq client to the domain Enqueuer interface.
type Enqueuer struct {
	client   *asynq.Client
	policies map[notification.Channel]notification.DeliveryPolicy
}

// NewEnqueuer creates a new queue enqueuer.
func NewEnqueuer(client *asynq.Client, policies map[notification.Channel]notification.DeliveryPolicy) *Enqueuer {
	return &Enqueuer{client: client, policies: policies}
}

// EnqueueSend enqueues a dispatch job for the notification. A future
// scheduled_at defers processing; the worker re-checks it at dequeue time
// anyway, so an early dequeue only re-defers.
func (e *Enqueuer) EnqueueSend(n *notification.Notification) error {
	task, err := notification.NewSendTask(n.ID)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	policy, ok := e.policies[n.Channel]
	if !ok {
		policy = notification.DefaultPolicy()
	}

	opts := []asynq.Option{
		asynq.Queue(QueueName(n.Channel, n.Priority)),
		// Backstop only; the record's retry_count governs retries.
		asynq.MaxRetry(policy.MaxAttempts),
	}
	if n.ScheduledAt != nil && n.ScheduledAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(*n.ScheduledAt))
	}

	if _, err := e.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}
	return nil
}
