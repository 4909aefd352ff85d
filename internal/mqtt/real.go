package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Topics   Topics
	Buffer   int // messages kept while disconnected
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics

	mu        sync.Mutex
	pending   *outbox
	connected bool // at least one connection has completed
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting in the background.
func NewRealPublisher(o Options) *RealPublisher {
	if o.ClientID == "" {
		o.ClientID = "knob-sensor"
	}
	if o.Topics == (Topics{}) {
		o.Topics = TopicsFor("")
	}

	p := &RealPublisher{
		topics:  o.Topics,
		pending: newOutbox(o.Buffer),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(o.Topics.System, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newRealPublisher(client paho.Client, topics Topics, buffer int) *RealPublisher {
	return &RealPublisher{
		client:  client,
		topics:  topics,
		pending: newOutbox(buffer),
	}
}

// onConnect replays queued messages, then announces a reconnect.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	queued := p.pending.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if len(queued) > 0 {
		log.Printf("mqtt: connected, replaying %d queued messages", len(queued))
	} else {
		log.Printf("mqtt: connected")
	}
	for _, m := range queued {
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}

	if reconnect {
		ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Retained: true}
		if err := p.PublishSystem(ev); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

// Publish sends a knob event to the MQTT broker.
func (p *RealPublisher) Publish(event KnobEvent) error {
	m, err := eventMessage(p.topics, event)
	if err != nil {
		return err
	}
	return p.publish(m)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	m, err := systemMessage(p.topics, event)
	if err != nil {
		return err
	}
	return p.publish(m)
}

func (p *RealPublisher) publish(m pendingMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.push(m)
		p.mu.Unlock()
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m pendingMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Queued returns how many messages are waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
