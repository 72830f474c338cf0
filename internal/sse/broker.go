package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/sykkeldel/locker-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second

	// TopicDoors carries door command lifecycle events for operators.
	TopicDoors = "doors"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event of the given type.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}

type Client struct {
	Topic  string
	Events chan Event
	Done   chan struct{}
}

type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // topic -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(topic string) *Client {
	client := &Client{
		Topic:  topic,
		Events: make(chan Event, 100),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[topic] == nil {
		b.clients[topic] = make(map[*Client]bool)
		go b.subscribeToRedis(topic)
	}
	b.clients[topic][client] = true
	clientCount := len(b.clients[topic])
	b.mu.Unlock()

	log.Info().
		Str("topic", topic).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.Topic]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.Topic)
		}

		log.Info().
			Str("topic", client.Topic).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.redis.PublishEvent(ctx, topic, data)
}

func (b *Broker) subscribeToRedis(topic string) {
	pubsub := b.redis.SubscribeEvents(b.ctx, topic)
	defer pubsub.Close()

	log.Debug().
		Str("topic", topic).
		Str("channel", redisclient.EventChannel(topic)).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(topic, event)
		}
	}
}

func (b *Broker) broadcast(topic string, event Event) {
	b.mu.RLock()
	clients := b.clients[topic]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("topic", topic).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[topic])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
