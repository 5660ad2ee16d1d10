package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSInvalidator рассылает инвалидации превью между экземплярами редактора
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	logger  *logging.Logger

	mu           sync.Mutex
	subscription *nats.Subscription

	publishedCount int64
	receivedCount  int64
}

// InvalidationMessage представляет сообщение об изменении чанка
type InvalidationMessage struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NewNATSInvalidator подключается к NATS. Пустой nodeID заменяется случайным UUID.
func NewNATSInvalidator(config *CacheConfig, nodeID string) (*NATSInvalidator, error) {
	config.setDefaults()
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	logger := logging.GetComponentLogger("cache")

	opts := []nats.Option{
		nats.Name("terrain-editor " + nodeID),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS invalidator initialized: %s (subject: %s)", config.NATSURL, config.Subject)
	return &NATSInvalidator{
		conn:    conn,
		subject: config.Subject,
		nodeID:  nodeID,
		logger:  logger,
	}, nil
}

// PublishInvalidation сообщает остальным узлам об изменении чанка
func (n *NATSInvalidator) PublishInvalidation(_ context.Context, coords vec.Vec2) error {
	data, err := json.Marshal(InvalidationMessage{
		X:         coords.X,
		Y:         coords.Y,
		Timestamp: time.Now(),
		NodeID:    n.nodeID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	atomic.AddInt64(&n.publishedCount, 1)
	return nil
}

// SubscribeInvalidations вызывает handler для чужих инвалидаций до отмены ctx
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		n.handleMessage(msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.subscription = sub

	go func() {
		<-ctx.Done()
		n.unsubscribe()
	}()
	return nil
}

func (n *NATSInvalidator) handleMessage(data []byte, handler InvalidationHandler) {
	atomic.AddInt64(&n.receivedCount, 1)

	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		n.logger.Error("Failed to unmarshal invalidation message: %v", err)
		return
	}
	if msg.NodeID == n.nodeID {
		return
	}
	if err := handler(vec.Vec2{X: msg.X, Y: msg.Y}); err != nil {
		n.logger.Error("Invalidation handler failed for chunk %d,%d: %v", msg.X, msg.Y, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subscription != nil {
		if err := n.subscription.Unsubscribe(); err != nil && n.conn.IsConnected() {
			n.logger.Error("Failed to unsubscribe from invalidations: %v", err)
		}
		n.subscription = nil
	}
}

// Close закрывает соединение с NATS
func (n *NATSInvalidator) Close() error {
	n.unsubscribe()
	n.conn.Close()
	return nil
}
