package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	coremon "github.com/kilianp07/chargectl/core/monitoring"
	"github.com/kilianp07/chargectl/infra/logger"
)

const (
	online  = "online"
	offline = "offline"

	// stateTimeout bounds the wait for one state message.
	stateTimeout = 2 * time.Second
)

// ErrClosed is returned by RecordCycle after Close.
var ErrClosed = errors.New("mqtt publisher closed")

type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type pahoClient interface {
	tokenPublisher
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher announces the controller to Home Assistant via MQTT discovery
// and publishes every cycle's budgets and amps to the component state
// topics. State is sent from a background goroutine; only the newest
// pending record is kept.
type Publisher struct {
	cli       pahoClient
	cfg       Config
	log       logger.Logger
	discovery []byte
	backoff   time.Duration

	pending   chan coremetrics.CycleRecord
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPublisher connects to the broker. Discovery and availability are
// published on every (re)connect. A nil logger uses the default "mqtt"
// component logger.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.New("mqtt")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	discovery, err := DiscoveryPayload(cfg)
	if err != nil {
		return nil, fmt.Errorf("build discovery payload: %w", err)
	}
	p := &Publisher{
		cfg:       cfg,
		log:       log,
		discovery: discovery,
		backoff:   time.Duration(cfg.BackoffMS) * time.Millisecond,
		pending:   make(chan coremetrics.CycleRecord, 1),
		done:      make(chan struct{}),
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		p.announce(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	p.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// NewClientOptions builds mqtt client options from Config. The will marks
// the device offline when the connection drops.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetWill(cfg.AvailabilityTopic(), offline, cfg.QoS, true)
	return opts, nil
}

func (p *Publisher) announce(c tokenPublisher) {
	if t := c.Publish(p.cfg.DiscoveryTopic(), p.cfg.QoS, true, p.discovery); t.Wait() && t.Error() != nil {
		p.log.Errorf("publish discovery: %v", t.Error())
		return
	}
	if t := c.Publish(p.cfg.AvailabilityTopic(), p.cfg.QoS, true, online); t.Wait() && t.Error() != nil {
		p.log.Errorf("publish availability: %v", t.Error())
	}
}

// RecordCycle queues rec for publication and returns without waiting for
// the broker. A record still waiting is replaced by the newer one.
func (p *Publisher) RecordCycle(rec coremetrics.CycleRecord) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	for {
		select {
		case p.pending <- rec:
			return nil
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case rec := <-p.pending:
			p.sendState(rec)
		case <-p.done:
			select {
			case rec := <-p.pending:
				p.sendState(rec)
			default:
			}
			return
		}
	}
}

func (p *Publisher) sendState(rec coremetrics.CycleRecord) {
	if err := p.publishState(rec); err != nil {
		p.log.Warnf("publish state: %v", err)
	}
}

// publishState sends one message per discovery component. Each topic gets a
// single attempt and the first failure skips the rest of the cycle; the
// next cycle carries fresh values anyway.
func (p *Publisher) publishState(rec coremetrics.CycleRecord) error {
	for _, c := range components {
		topic := p.cfg.StateTopic(c.ID)
		token := p.cli.Publish(topic, p.cfg.QoS, false, c.value(rec))
		if !token.WaitTimeout(stateTimeout) {
			return fmt.Errorf("publish %s: timed out after %s", topic, stateTimeout)
		}
		if err := token.Error(); err != nil {
			err = fmt.Errorf("publish %s: %w", topic, err)
			coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
			return err
		}
	}
	return nil
}

// publish retries with exponential backoff and reports the final failure
// to the monitor. It is used for the retained availability messages.
func (p *Publisher) publish(topic string, payload any, retained bool) error {
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, err)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	err = fmt.Errorf("publish %s: %w", topic, err)
	coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return err
}

// Close flushes the pending state, marks the device offline and
// disconnects.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	if p.cli == nil || !p.cli.IsConnected() {
		return nil
	}
	err := p.publish(p.cfg.AvailabilityTopic(), offline, true)
	p.cli.Disconnect(250)
	return err
}
