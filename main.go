package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"

	"github.com/ryansname/sbox-sim/canbus"
)

// SafeGo launches a goroutine with panic recovery and retry logic.
// On panic, retries with exponential backoff (max 10 retries).
// Retry count resets if worker ran for 2+ minutes before failing.
// After exhausting retries, cancels context to trigger shutdown.
// The goroutine is tracked by wg until it finally returns.
func SafeGo(
	ctx context.Context,
	cancel context.CancelFunc,
	wg *sync.WaitGroup,
	name string,
	fn func(ctx context.Context),
) {
	const maxRetries = 10
	const maxDelay = 10 * time.Minute
	const resetAfter = 2 * time.Minute

	wg.Add(1)
	go func() {
		defer wg.Done()
		retries := 0
		delay := time.Second

		for {
			startTime := time.Now()
			var panicValue any

			func() {
				defer func() {
					panicValue = recover()
				}()
				fn(ctx)
			}()

			// Returning normally covers both cancellation and a worker that is done
			if panicValue == nil {
				return
			}

			if time.Since(startTime) >= resetAfter {
				retries = 0
				delay = time.Second
			}

			retries++
			log.Printf("Panic in %s (attempt %d/%d): %v\n", name, retries, maxRetries, panicValue)

			if retries >= maxRetries {
				log.Printf("%s failed after %d retries, shutting down\n", name, maxRetries)
				cancel()
				return
			}

			log.Printf("%s will retry in %v\n", name, delay)
			select {
			case <-time.After(delay):
				delay = min(delay*2, maxDelay)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// openBus opens the CAN transport. inject is where console "send" frames go:
// the far end of the virtual bus, or the real bus itself.
func openBus(cfg Config) (bus, inject canbus.Bus, closeBus func() error, err error) {
	if cfg.Virtual {
		lb := canbus.NewLoopbackBus()
		log.Println("Using a virtual CAN bus, use 'send' to play the controller")
		return lb.Open(), lb.Open(), lb.Close, nil
	}

	up, err := canbus.IsInterfaceUp(cfg.Interface)
	if err != nil {
		return nil, nil, nil, err
	}
	if !up {
		if !cfg.BringUp {
			return nil, nil, nil, fmt.Errorf("interface %s is down (ip link set %s up, or pass --bring-up)", cfg.Interface, cfg.Interface)
		}
		if err := canbus.SetInterfaceUp(cfg.Interface); err != nil {
			return nil, nil, nil, err
		}
		log.Printf("Brought %s up\n", cfg.Interface)
	}

	b, err := canbus.DialSocketCAN(cfg.Interface)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Printf("Opened CAN interface %s\n", cfg.Interface)
	return b, b, b.Close, nil
}

// shutdownTimeout bounds how long run waits for workers to return
const shutdownTimeout = 2 * time.Second

// waitWorkers waits for wg, giving up after timeout. It reports whether every
// worker finished.
func waitWorkers(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// trafficLogName is the per-run candump log file name
func trafficLogName(start time.Time) string {
	return start.Format("2006-01-02T15-04-05") + "-sbox-sim.log"
}

func openTrafficLog(dir string, start time.Time) (*canbus.TrafficLog, string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, trafficLogName(start))
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create CAN log: %w", err)
	}
	return canbus.NewTrafficLog(f), path, nil
}

// trafficFlushWorker keeps the CAN log file close to live
func trafficFlushWorker(ctx context.Context, traffic *canbus.TrafficLog) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := traffic.Flush(); err != nil {
				log.Printf("Failed to write CAN log: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// drainWorker discards frames arriving at the unattended end of the virtual bus
func drainWorker(ctx context.Context, bus canbus.Bus) {
	for {
		if _, err := bus.Receive(ctx); err != nil {
			return
		}
	}
}

// run wires the workers together and blocks until shutdown
func run(parent context.Context, cfg Config) error {
	log.Println("Starting sbox-sim...")

	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}

	rawBus, inject, closeBus, err := openBus(cfg)
	if err != nil {
		return err
	}

	traffic, logPath, err := openTrafficLog(cfg.LogDir, time.Now())
	if err != nil {
		_ = closeBus()
		return err
	}
	// Runs after the workers have stopped, the bus goes first so nothing records into a closed log
	defer func() {
		if err := closeBus(); err != nil {
			log.Printf("Failed to close CAN bus: %v\n", err)
		}
		if err := traffic.Close(); err != nil {
			log.Printf("Failed to close CAN log: %v\n", err)
		}
	}()
	log.Printf("Writing CAN messages to %s\n", logPath)

	ifaceName := cfg.Interface
	if cfg.Virtual {
		ifaceName = "virtual"
	}
	bus := canbus.NewLoggedBus(rawBus, traffic, ifaceName)
	if !cfg.Virtual {
		inject = bus
	}

	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		if !waitWorkers(&wg, shutdownTimeout) {
			log.Printf("Workers still running after %v, exiting anyway\n", shutdownTimeout)
		}
	}()

	SafeGo(ctx, cancel, &wg, "traffic-flush", func(ctx context.Context) {
		trafficFlushWorker(ctx, traffic)
	})

	if cfg.Virtual {
		SafeGo(ctx, cancel, &wg, "virtual-drain", func(ctx context.Context) {
			drainWorker(ctx, inject)
		})
	}

	SafeGo(ctx, cancel, &wg, "rx-worker", func(ctx context.Context) {
		rxWorker(ctx, bus, sim)
	})

	for _, m := range sim.Messages.Sorted() {
		SafeGo(ctx, cancel, &wg, fmt.Sprintf("tx-%#03x", m.ID), func(ctx context.Context) {
			txWorker(ctx, bus, m)
		})
	}
	log.Printf("Transmitting %d messages\n", sim.Messages.Len())

	statusChan := make(chan StatusData, 10)
	SafeGo(ctx, cancel, &wg, "status-worker", func(ctx context.Context) {
		statusWorker(ctx, sim, statusChan)
	})

	var downstreamChans []chan<- StatusData

	if cfg.NoUI {
		logChan := make(chan StatusData, 10)
		downstreamChans = append(downstreamChans, logChan)
		SafeGo(ctx, cancel, &wg, "log-worker", func(ctx context.Context) {
			logWorker(ctx, logChan)
		})
	} else {
		consoleChan := make(chan StatusData, 10)
		downstreamChans = append(downstreamChans, consoleChan)
		SafeGo(ctx, cancel, &wg, "console-worker", func(ctx context.Context) {
			consoleWorker(ctx, cancel, sim, inject, consoleChan)
		})
	}

	if cfg.MQTT.Broker != "" {
		mqttOutgoingChan := make(chan MQTTMessage, 100) // Larger buffer for queuing
		mqttClientChan := make(chan mqtt.Client, 1)     // Buffered to prevent blocking onConnect
		cmdChan := make(chan CommandMessage, 10)
		mqttStateChan := make(chan StatusData, 10)
		downstreamChans = append(downstreamChans, mqttStateChan)

		SafeGo(ctx, cancel, &wg, "mqtt-sender", func(ctx context.Context) {
			mqttSenderWorker(ctx, mqttOutgoingChan, mqttClientChan)
		})

		mqttSender := NewMQTTSender(mqttOutgoingChan)
		if err := mqttSender.CreateEntities(); err != nil {
			return fmt.Errorf("create Home Assistant entities: %w", err)
		}

		SafeGo(ctx, cancel, &wg, "mqtt-state", func(ctx context.Context) {
			mqttStateWorker(ctx, mqttStateChan, mqttSender)
		})
		SafeGo(ctx, cancel, &wg, "command-worker", func(ctx context.Context) {
			commandWorker(ctx, cmdChan, sim)
		})
		SafeGo(ctx, cancel, &wg, "mqtt-worker", func(ctx context.Context) {
			mqttWorker(ctx, cfg.MQTT, commandTopics, cmdChan, mqttClientChan)
		})
	}

	SafeGo(ctx, cancel, &wg, "broadcast-worker", func(ctx context.Context) {
		broadcastWorker(ctx, statusChan, downstreamChans)
	})

	// Wait for interrupt signal or context cancellation (quit, or a worker gave up)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Println("Shutting down...")
	case <-ctx.Done():
		log.Println("Shutting down...")
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
