package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/chargectl/api/charger"
	"github.com/kilianp07/chargectl/config"
	"github.com/kilianp07/chargectl/core/charging"
	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/events"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	coremon "github.com/kilianp07/chargectl/core/monitoring"
	"github.com/kilianp07/chargectl/infra/homeassistant"
	"github.com/kilianp07/chargectl/infra/logger"
	"github.com/kilianp07/chargectl/infra/metrics"
	"github.com/kilianp07/chargectl/infra/monitoring"
	"github.com/kilianp07/chargectl/infra/mqtt"
	"github.com/kilianp07/chargectl/internal/eventbus"
)

// Wallbox is a charger that can also notify the user.
type Wallbox interface {
	charging.Wallbox
	charging.Notifier
}

// Service wires the wallbox, the metrics sinks, the event bus and the
// controller together.
type Service struct {
	cfg        *config.Config
	engine     engine.Config
	box        Wallbox
	sinks      *coremetrics.MultiSink
	status     *metrics.StatusSink
	bus        *eventbus.TypedBus[events.Event]
	controller *charging.Controller
	log        logger.Logger
	logOut     io.Closer
}

// NewWallbox returns the wallbox selected by the api section.
func NewWallbox(cfg homeassistant.Config) Wallbox {
	if cfg.Mode == homeassistant.ModeMock {
		return homeassistant.NewMock(homeassistant.DefaultMockSnapshot())
	}
	return homeassistant.NewWallbox(cfg, logger.New("homeassistant"))
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logOut, err := logger.Setup(cfg.Log.Options())
	if err != nil {
		return nil, fmt.Errorf("log output: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = logOut.Close()
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	ec, err := cfg.Engine()
	if err != nil {
		_ = logOut.Close()
		return nil, err
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = logOut.Close()
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	status := metrics.NewStatusSink()
	sinks := coremetrics.NewMultiSink(status, sink)
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPublisher(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			_ = sinks.Close()
			_ = logOut.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		sinks.Add(pub)
	}

	svc := newService(cfg, ec, NewWallbox(cfg.API), sinks, status, logg)
	svc.logOut = logOut
	return svc, nil
}

func newService(cfg *config.Config, ec engine.Config, box Wallbox, sinks *coremetrics.MultiSink, status *metrics.StatusSink, logg logger.Logger) *Service {
	bus := eventbus.NewTyped[events.Event]()
	ctrl := charging.New(ec, box,
		charging.WithSink(sinks),
		charging.WithPublisher(bus),
		charging.WithLogger(logger.New("charging")),
	)
	return &Service{
		cfg:        cfg,
		engine:     ec,
		box:        box,
		sinks:      sinks,
		status:     status,
		bus:        bus,
		controller: ctrl,
		log:        logg,
	}
}

// Run starts the event consumers and the HTTP server, then runs the
// control loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sinks, logger.New("events"))
	StartNotifier(ctx, s.bus, s.box, logger.New("notifier"))

	if addr := s.cfg.Metrics.HTTPAddr; addr != "" {
		routes := map[string]http.Handler{
			"/api/charger/status": charger.NewStatusHandler(s.status, s.cfg.Metrics.APIToken),
		}
		if h := s.sinks.History(); h != nil {
			routes["/api/charger/history"] = charger.NewHistoryHandler(h, s.cfg.Metrics.APIToken)
		}
		go func() {
			s.log.Infof("http server listening on %s", addr)
			if err := metrics.StartServer(ctx, addr, routes, s.log); err != nil {
				s.log.Errorf("http server: %v", err)
			}
		}()
	}
	return s.controller.Run(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	err := s.sinks.Close()
	coremon.Flush(2 * time.Second)
	if s.logOut != nil {
		err = errors.Join(err, s.logOut.Close())
	}
	return err
}
