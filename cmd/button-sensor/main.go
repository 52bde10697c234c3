// Command button-sensor polls two GPIO buttons, classifies presses into short,
// combined and long events and publishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/input"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

// Exit codes for --wait.
const (
	exitEvent   = 0
	exitTimeout = 2
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Resolve()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	code, err := run(cfg, flags.PrintState, flags.Wait)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	os.Exit(code)
}

func run(cfg *config.Config, printState bool, wait time.Duration) (int, error) {
	reader, err := gpio.Open(gpio.Options{
		Backend:  cfg.GPIO.Backend,
		Chip:     cfg.GPIO.Chip,
		PinA:     cfg.GPIO.PinA,
		PinB:     cfg.GPIO.PinB,
		Debounce: cfg.GPIO.Debounce,
	})
	if err != nil {
		return 1, fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		a, b, err := reader.Read()
		if err != nil {
			return 1, fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("A: %s, B: %s\n", stateString(a), stateString(b))
		return 0, nil
	}

	clock := input.NewRealClock(cfg.Tick)
	classifier := logic.NewClassifier(cfg.LongPressTicks())
	poller := input.NewPoller(reader, clock, input.SleepYielder{Interval: cfg.Poll}, classifier, log)

	if wait != 0 {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return waitMode(ctx, poller, cfg, wait)
	}

	publisher, err := mqtt.NewRealPublisher(cfg.Broker, log.WithField("component", "mqtt"))
	if err != nil {
		return 1, fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Created before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		TickMs:      cfg.Tick.Milliseconds(),
		LongPressMs: cfg.LongPress.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		IdleMs:      cfg.Idle.Milliseconds(),
		Backend:     cfg.GPIO.Backend,
		PinA:        cfg.GPIO.PinA,
		PinB:        cfg.GPIO.PinB,
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTP,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP)
	}

	log.WithFields(logrus.Fields{
		"poll":       cfg.Poll,
		"tick":       cfg.Tick,
		"long_press": cfg.LongPress,
		"idle":       cfg.Idle,
		"heartbeat":  cfg.Heartbeat,
		"broker":     cfg.Broker,
		"backend":    cfg.GPIO.Backend,
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lc := loopConfig{
		LongRepeat: cfg.LongRepeat,
		Idle:       cfg.IdleTicks(),
		Heartbeat:  cfg.Heartbeat,
	}
	return 0, runLoop(poller, publisher, publisher, tracker, lc, time.Now, ticker.C, sigCh)
}

// waitMode blocks for a single event, prints it and maps the outcome to an
// exit code. A negative wait blocks until an event or a signal.
func waitMode(ctx context.Context, poller *input.Poller, cfg *config.Config, wait time.Duration) (int, error) {
	var (
		ev  logic.Event
		err error
	)
	if wait < 0 {
		ev, err = poller.WaitForEvent(ctx)
	} else {
		ev, err = poller.WaitForEventOrTimeout(ctx, cfg.WaitTicks(wait))
	}
	if err != nil {
		return 1, fmt.Errorf("wait: %w", err)
	}

	fmt.Println(ev)
	if ev == logic.EventNone {
		return exitTimeout, nil
	}
	return exitEvent, nil
}

type loopConfig struct {
	LongRepeat int
	Idle       logic.Tick
	Heartbeat  time.Duration
}

func runLoop(poller *input.Poller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, lc loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	monitor := logic.NewMonitor(logic.MonitorConfig{
		LongRepeat: lc.LongRepeat,
		IdleAfter:  lc.Idle,
		NewID:      mqtt.NewEventID,
	}, now(), poller.Tick())

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(poller.Held(), monitor.LastRecord(), monitor.EventCountsSnapshot(), monitor.IsIdle())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
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
				refresh()
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			ev, err := poller.Poll()
			if err != nil {
				log.WithError(err).Warn("gpio read error")
				continue
			}

			for _, rec := range monitor.Observe(ev, poller.Held(), t) {
				log.WithFields(logrus.Fields{
					"event":  rec.Event,
					"held":   rec.Held,
					"repeat": rec.Repeat,
				}).Info("button event")
				if err := publisher.Publish(rec); err != nil {
					log.WithError(err).Warn("publish error")
				}
			}

			at, active := poller.LastActivity()
			if active && at == poller.Tick() && tracker != nil {
				tracker.SetLastActivity(t)
			}
			publishIdle(publisher, monitor.CheckIdle(poller.Tick(), at, active), t)

			if hb := monitor.CheckHeartbeat(t, lc.Heartbeat); hb != nil {
				log.WithFields(logrus.Fields{
					"uptime": hb.Uptime,
					"events": hb.Counts.Total(),
				}).Info("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refresh()
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.WithError(err).Warn("heartbeat publish error")
				}
			}

			refresh()
		}
	}
}

func publishIdle(publisher mqtt.Publisher, tr logic.IdleTransition, t time.Time) {
	var name string
	switch tr {
	case logic.IdleEntered:
		name = "IDLE"
	case logic.IdleLeft:
		name = "ACTIVE"
	default:
		return
	}
	log.Info(name)
	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: t, Event: name}); err != nil {
		log.WithError(err).Warnf("failed to publish %s event", name)
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

func stateString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
