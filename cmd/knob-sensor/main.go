// Command knob-sensor polls rotary encoders on GPIO and publishes each detent to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/knob-sensor/internal/config"
	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/mqtt"
	"github.com/sweeney/knob-sensor/internal/status"
	"github.com/sweeney/knob-sensor/internal/web"
)

// statusRefresh is how often the tracker picks up knob counts between events.
const statusRefresh = time.Second

func main() {
	configPath := flag.String("config", "/etc/knob-sensor/config.yaml", "YAML config file")
	var fv flagValues
	flag.DurationVar(&fv.poll, "poll", knob.DefaultInterval, "GPIO polling interval")
	flag.StringVar(&fv.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.DurationVar(&fv.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&fv.http, "http", ":80", "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current pin levels and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	fv.apply(&cfg, set)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}
	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// flagValues holds command-line overrides for the config file.
type flagValues struct {
	poll      time.Duration
	heartbeat time.Duration
	broker    string
	http      string
}

// apply copies the flags named in set over cfg.
func (fv flagValues) apply(cfg *config.Config, set map[string]bool) {
	if set["poll"] {
		cfg.Poll = config.Duration(fv.poll)
	}
	if set["heartbeat"] {
		cfg.Heartbeat = config.Duration(fv.heartbeat)
	}
	if set["broker"] {
		cfg.MQTT.Broker = fv.broker
	}
	if set["http"] {
		cfg.HTTP = fv.http
	}
}

func run(cfg config.Config, printOnly bool) error {
	src, err := gpio.Open(cfg.GPIO.Backend, cfg.GPIO.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer src.Close()

	if printOnly {
		return printState(os.Stdout, src, cfg.Knobs)
	}

	queue := newEventQueue(defaultQueueSize, time.Now)
	reg := knob.NewRegistry(src, knob.Options{Interval: cfg.Poll.D()})
	if err := createKnobs(reg, cfg.Knobs, queue); err != nil {
		reg.Close()
		return err
	}

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Topics:   mqtt.TopicsFor(cfg.MQTT.TopicPrefix),
		Buffer:   cfg.MQTT.Buffer,
	})
	defer publisher.Close()
	// Stop polling before the publisher and GPIO go away.
	defer func() {
		if err := reg.Close(); err != nil {
			log.Printf("registry close: %v", err)
		}
	}()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.D().Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.D().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
		Backend:     cfg.GPIO.Backend,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	refreshTracker(reg, queue, publisher, tracker)

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: knobs=%d poll=%v broker=%s heartbeat=%v backend=%s",
		reg.Len(), cfg.Poll.D(), cfg.MQTT.Broker, cfg.Heartbeat.D(), cfg.GPIO.Backend)

	var heartbeat <-chan time.Time
	if hb := cfg.Heartbeat.D(); hb > 0 {
		t := time.NewTicker(hb)
		defer t.Stop()
		heartbeat = t.C
	}
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	return runLoop(reg, queue, publisher, publisher, tracker, time.Now, heartbeat, refresh.C, sigCh)
}

// createKnobs registers one knob per entry, with q on both directions.
func createKnobs(reg *knob.Registry, knobs []config.KnobConfig, q knob.Sink) error {
	for _, kc := range knobs {
		k, err := reg.Create(&knob.Config{Name: kc.Name, PinA: kc.PinA, PinB: kc.PinB})
		if err != nil {
			return fmt.Errorf("knob %s: %w", kc.Name, err)
		}
		for _, ev := range []knob.Event{knob.EventLeft, knob.EventRight} {
			if err := k.Register(ev, q); err != nil {
				return fmt.Errorf("knob %s: register %s: %w", kc.Name, ev, err)
			}
		}
	}
	return nil
}

// printState acquires each knob's pins and writes their current levels.
func printState(w io.Writer, src gpio.Source, knobs []config.KnobConfig) error {
	for _, kc := range knobs {
		if err := src.Acquire(kc.PinA); err != nil {
			return fmt.Errorf("knob %s: pin %d: %w", kc.Name, kc.PinA, err)
		}
		if err := src.Acquire(kc.PinB); err != nil {
			src.Release(kc.PinA)
			return fmt.Errorf("knob %s: pin %d: %w", kc.Name, kc.PinB, err)
		}
		fmt.Fprintf(w, "%s: A(%d)=%d B(%d)=%d\n", kc.Name, kc.PinA, src.Level(kc.PinA), kc.PinB, src.Level(kc.PinB))
		src.Release(kc.PinA)
		src.Release(kc.PinB)
	}
	return nil
}

// poller is the part of the registry the run loop drives.
type poller interface {
	Knobs() []*knob.Knob
	Running() bool
	Stop() error
	Resume() error
}

func runLoop(reg poller, queue *eventQueue, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) error {
	deliver := func(e mqtt.KnobEvent) {
		log.Printf("event: %s %s count=%d", e.Name, e.Event, e.Count)
		if err := publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
		if tracker != nil {
			tracker.RecordEvent()
		}
	}

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGUSR1 {
				togglePolling(reg)
				refreshTracker(reg, queue, mqttStatus, tracker)
				continue
			}

			log.Printf("received %v, shutting down", s)
			// Publish whatever the knobs already produced.
			queue.drain(deliver)

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(reg, queue, mqttStatus, tracker)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-queue.ch:
			deliver(e)
			refreshTracker(reg, queue, mqttStatus, tracker)

		case <-heartbeat:
			hbEvent := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				refreshTracker(reg, queue, mqttStatus, tracker)
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v events=%d dropped=%d", snap.Uptime().Truncate(time.Second), snap.Events, snap.Dropped)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case <-refresh:
			refreshTracker(reg, queue, mqttStatus, tracker)
		}
	}
}

// togglePolling stops a running registry and resumes a stopped one.
func togglePolling(reg poller) {
	if reg.Running() {
		if err := reg.Stop(); err != nil {
			log.Printf("stop polling: %v", err)
			return
		}
		log.Printf("polling stopped")
		return
	}
	if err := reg.Resume(); err != nil {
		log.Printf("resume polling: %v", err)
		return
	}
	log.Printf("polling resumed")
}

// refreshTracker copies knob state into the tracker for HTTP consumers.
func refreshTracker(reg poller, queue *eventQueue, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker) {
	if tracker == nil {
		return
	}
	knobs := reg.Knobs()
	rows := make([]knob.Status, 0, len(knobs))
	for _, k := range knobs {
		rows = append(rows, k.Snapshot())
	}
	tracker.Update(rows, reg.Running())
	tracker.SetDropped(queue.Dropped())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
