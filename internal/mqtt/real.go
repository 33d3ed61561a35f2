package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
)

// DefaultBufferSize is how many messages are queued for replay while offline.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	// OnConnectionChange, if set, is called with the new state on every
	// connect and connection loss.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are queued and replayed on reconnect; for status lines only
// the newest one survives.
type RealPublisher struct {
	client paho.Client
	log    *zap.Logger

	mu     sync.Mutex
	queue  *offlineQueue
	// connected is tracked locally so publishing and queueing agree even
	// while paho is reconnecting.
	connected bool
	// everConnected separates the first connect from reconnects.
	everConnected bool
	onChange      func(bool)
}

// NewRealPublisher creates a publisher for the given broker. The first
// connection is awaited briefly; if it does not come up, the client keeps
// retrying in the background and messages are queued meanwhile.
func NewRealPublisher(opts Options, logger *zap.Logger) (*RealPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ClientID == "" {
		opts.ClientID = "virtual-cursor"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		log:      logger,
		queue:    newOfflineQueue(opts.BufferSize, logger),
		onChange: opts.OnConnectionChange,
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		logger.Warn("broker not reachable yet, queueing until connected", zap.String("broker", opts.Broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everConnected
	p.everConnected = true
	pending, dropped := p.queue.flush()
	onChange := p.onChange
	p.mu.Unlock()

	if reconnect {
		p.log.Info("reconnected to broker", zap.Int("replaying", len(pending)), zap.Int("dropped", dropped))
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected}); err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	} else {
		p.log.Info("connected to broker")
	}

	for _, msg := range pending {
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
	if onChange != nil {
		onChange(true)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	onChange := p.onChange
	p.mu.Unlock()

	p.log.Warn("connection to broker lost", zap.Error(err))
	if onChange != nil {
		onChange(false)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// publish sends or queues one message. Queued messages report no error.
func (p *RealPublisher) publish(msg outgoing) error {
	p.mu.Lock()
	if !p.connected {
		p.queue.add(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// PublishActuation sends an applied intent (QoS 0).
func (p *RealPublisher) PublishActuation(a control.Actuation) error {
	payload, err := FormatIntentPayload(a)
	if err != nil {
		return fmt.Errorf("format intent payload: %w", err)
	}
	return p.publish(outgoing{topic: TopicIntents, payload: payload})
}

// PublishStatus sends a status line (QoS 0, coalesced while offline).
func (p *RealPublisher) PublishStatus(line power.StatusLine) error {
	payload, err := FormatStatusPayload(line)
	if err != nil {
		return fmt.Errorf("format status payload: %w", err)
	}
	return p.publish(outgoing{topic: TopicStatus, payload: payload, latest: true})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(outgoing{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
