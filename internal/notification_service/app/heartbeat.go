package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// heartbeatPayload is the liveness signal consumed by an external monitor.
type heartbeatPayload struct {
	Service    string    `json:"service"`
	InstanceID string    `json:"instanceId"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// HeartbeatPublisher publishes a periodic liveness signal on a well-known
// pub/sub channel. No acknowledgment is expected; a missed beat is how the
// monitor learns the worker died.
type HeartbeatPublisher struct {
	publisher  ChannelPublisher
	channel    string
	interval   time.Duration
	service    string
	instanceID string
	now        func() time.Time
	logger     *slog.Logger
}

func NewHeartbeatPublisher(
	publisher ChannelPublisher,
	channel string,
	interval time.Duration,
	service string,
	instanceID string,
	logger *slog.Logger,
) *HeartbeatPublisher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HeartbeatPublisher{
		publisher:  publisher,
		channel:    channel,
		interval:   interval,
		service:    service,
		instanceID: instanceID,
		now:        time.Now,
		logger:     logger.With("component", "heartbeat_publisher"),
	}
}

// Run publishes one beat per interval until ctx is cancelled. Designed to be
// run in an errgroup goroutine; publish failures are logged and the ticker
// keeps going.
func (h *HeartbeatPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.InfoContext(ctx, "Heartbeat publisher started",
		"channel", h.channel, "interval", h.interval.String())

	for {
		select {
		case <-ticker.C:
			h.beat(ctx)
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Heartbeat publisher stopping")
			return ctx.Err()
		}
	}
}

func (h *HeartbeatPublisher) beat(ctx context.Context) {
	payload := heartbeatPayload{
		Service:    h.service,
		InstanceID: h.instanceID,
		Status:     "alive",
		Timestamp:  h.now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to marshal heartbeat", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, h.channel, data); err != nil {
		h.logger.WarnContext(ctx, "Heartbeat publish failed", "channel", h.channel, "error", err)
		return
	}
	heartbeatsPublishedCounter.Inc()
}
