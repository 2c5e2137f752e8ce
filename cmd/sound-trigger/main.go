// Command sound-trigger serves an authenticated webhook that pulses a GPIO
// line to fire an external sound-playback board. HTTP and mDNS are only up
// while the network monitor reports the link as connected.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sweeney/sound-trigger/internal/config"
	"github.com/sweeney/sound-trigger/internal/discovery"
	"github.com/sweeney/sound-trigger/internal/gpio"
	"github.com/sweeney/sound-trigger/internal/mqtt"
	"github.com/sweeney/sound-trigger/internal/netmon"
	"github.com/sweeney/sound-trigger/internal/status"
	"github.com/sweeney/sound-trigger/internal/trigger"
	"github.com/sweeney/sound-trigger/internal/web"
)

func main() {
	defaults := config.Default()

	configPath := flag.String("config", "", "Path to YAML config file (flags override file values)")
	httpAddr := flag.String("http", defaults.HTTPAddr, "HTTP trigger address")
	gpioChip := flag.String("gpio-chip", defaults.GPIOChip, "GPIO chip device name")
	gpioLine := flag.Int("gpio-line", defaults.GPIOLine, "GPIO line number of the trigger pin (BCM)")
	pulse := flag.Duration("pulse", defaults.DefaultPulse, "Default pulse duration when the request carries none")
	token := flag.String("token", defaults.Token, "Shared secret required on trigger requests (empty disables auth)")
	broker := flag.String("broker", defaults.Broker, `MQTT broker address ("off" disables publishing)`)
	heartbeat := flag.Duration("heartbeat", defaults.Heartbeat, "Heartbeat interval (0 to disable)")
	probeTarget := flag.String("probe-target", defaults.ProbeTarget, "Host dialed to verify network reachability")
	probeTimeout := flag.Duration("probe-timeout", defaults.ProbeTimeout, "Reachability probe timeout")
	checkInterval := flag.Duration("check-interval", defaults.CheckInterval, "How often an established link is re-verified")
	instance := flag.String("instance", defaults.Instance, `mDNS instance name ("off" disables advertisement)`)
	tick := flag.Duration("tick", 500*time.Millisecond, "Connectivity machine tick interval")

	flag.Parse()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		cfg = loaded
	}

	// Flags given explicitly on the command line win over file values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "gpio-chip":
			cfg.GPIOChip = *gpioChip
		case "gpio-line":
			cfg.GPIOLine = *gpioLine
		case "pulse":
			cfg.DefaultPulse = *pulse
		case "token":
			cfg.Token = *token
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "probe-target":
			cfg.ProbeTarget = *probeTarget
		case "probe-timeout":
			cfg.ProbeTimeout = *probeTimeout
		case "check-interval":
			cfg.CheckInterval = *checkInterval
		case "instance":
			cfg.Instance = *instance
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *tick); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, tickInterval time.Duration) error {
	// Initialize the trigger pin. It rests high-impedance from here on;
	// only the controller ever drives it.
	pin, err := gpio.NewRealPin(cfg.GPIOChip, cfg.GPIOLine)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pin.Close()

	controller := trigger.New(pin, trigger.Policy{RequiredToken: cfg.Token}, cfg.DefaultPulse)

	monitor := netmon.New(netmon.Config{
		Target:        cfg.ProbeTarget,
		Timeout:       cfg.ProbeTimeout,
		CheckInterval: cfg.CheckInterval,
	}, nil)

	tracker := status.NewTracker(time.Now(), status.Config{
		HTTPAddr:       cfg.HTTPAddr,
		Broker:         brokerOrEmpty(cfg.Broker),
		GPIOChip:       cfg.GPIOChip,
		GPIOLine:       cfg.GPIOLine,
		DefaultPulseMs: cfg.DefaultPulse.Milliseconds(),
		AuthEnabled:    cfg.Token != "",
		ProbeTarget:    cfg.ProbeTarget,
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
	})

	// Initialize MQTT. The publisher buffers while the broker is down, so
	// the startup event below is safe to send immediately.
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if b := brokerOrEmpty(cfg.Broker); b != "" {
		real := mqtt.NewRealPublisher(b)
		defer real.Close()
		publisher = real
		mqttStatus = real
	}

	if publisher != nil {
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
	}

	srv := web.New(cfg.HTTPAddr, controller, tracker, monitor)
	if publisher != nil {
		pub := publisher
		srv.OnTrigger = func(d time.Duration, remote string) {
			event := mqtt.TriggerEvent{
				Timestamp: time.Now(),
				PulseMs:   d.Milliseconds(),
				Remote:    remote,
			}
			if err := pub.Publish(event); err != nil {
				log.Printf("publish trigger event: %v", err)
			}
		}
	}
	defer srv.Shutdown(context.Background())

	var adv *discovery.Advertiser
	if cfg.Instance != "" && cfg.Instance != "off" {
		if port, err := portOf(cfg.HTTPAddr); err != nil {
			log.Printf("discovery disabled: %v", err)
		} else {
			adv = discovery.New(cfg.Instance, port)
		}
	}

	// The trigger surface is only reachable while connected: the listener
	// comes up on entering Connected and is torn down on leaving it.
	var httpLn net.Listener
	onConnect := func() {
		ln, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			log.Printf("http listen error: %v", err)
			return
		}
		httpLn = ln
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		log.Printf("http trigger server listening on %s", cfg.HTTPAddr)

		if adv != nil {
			if err := adv.Start(cfg.DefaultPulse.Milliseconds(), cfg.Token != ""); err != nil {
				log.Printf("discovery error: %v", err)
			}
		}
	}
	onDisconnect := func() {
		if httpLn != nil {
			httpLn.Close()
			httpLn = nil
			log.Printf("http trigger server stopped")
		}
		if adv != nil {
			adv.Stop()
		}
	}

	log.Printf("started: http=%s gpio=%s:%d pulse=%v auth=%v broker=%s",
		cfg.HTTPAddr, cfg.GPIOChip, cfg.GPIOLine, cfg.DefaultPulse, cfg.Token != "", cfg.Broker)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(monitor, tracker, publisher, mqttStatus, cfg.Heartbeat, onConnect, onDisconnect, time.Now, ticker.C, sigCh)
}

// runLoop drives the connectivity machine and the connected-only
// collaborators until a shutdown signal arrives. Split out of run so tests
// can feed it a fake clock, tick channel, and probe.
func runLoop(monitor *netmon.Monitor, tracker *status.Tracker, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, heartbeat time.Duration, onConnect, onDisconnect func(), now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastState := monitor.State()
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			if lastState == netmon.StateConnected {
				onDisconnect()
			}

			if publisher != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "SHUTDOWN",
					Reason:     signalName,
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			t := now()
			state := monitor.Tick(t)
			tracker.SetConnectivity(state)
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if state != lastState {
				if state == netmon.StateConnected {
					onConnect()
				} else if lastState == netmon.StateConnected {
					onDisconnect()
				}
				lastState = state
			}

			if heartbeat > 0 && state == netmon.StateConnected && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				if publisher != nil {
					snap := tracker.Snapshot()
					event := mqtt.SystemEvent{
						Timestamp:  t,
						Event:      "HEARTBEAT",
						RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
					}
					if err := publisher.PublishSystem(event); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}
		}
	}
}

// portOf extracts the numeric port from a listen address like ":8080".
func portOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse http addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("parse http port %q: %w", portStr, err)
	}
	return port, nil
}

// brokerOrEmpty maps the "off" sentinel to an empty broker address.
func brokerOrEmpty(broker string) string {
	if broker == "off" {
		return ""
	}
	return broker
}
