package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/world"
)

const (
	defaultNatsURL = "nats://127.0.0.1:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNatsURL, "NATS server URL")
		stream     = flag.String("stream", "TILEWORLD", "JetStream stream name")
		prefix     = flag.String("prefix", eventbus.DefaultSubjectPrefix, "Subject prefix")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Sources filter: map names or session (comma-separated)")
		since      = flag.String("since", "", "Replay events since (e.g. 1h, 30m or RFC3339); empty - only new")
		limit      = flag.Int("limit", 0, "Stop after N events, 0 - no limit")
		idle       = flag.Duration("idle", 2*time.Second, "stats: stop after no events for this long")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, *prefix, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to JetStream: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	var start time.Time
	if *since != "" {
		start, err = parseSinceTime(*since, time.Now())
		if err != nil {
			log.Fatalf("❌ Invalid since: %v", err)
		}
	}

	switch *command {
	case "tail":
		err = tailEvents(ctx, bus, filter, start, *limit)
	case "stats":
		if start.IsZero() {
			start = time.Now().Add(-time.Hour)
		}
		err = showStats(ctx, bus, filter, start, *idle)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// subscribe подписывается на новые события или воспроизводит их с момента start
func subscribe(ctx context.Context, bus *eventbus.JetStreamBus, f eventbus.Filter, start time.Time, h eventbus.Handler) (eventbus.Subscription, error) {
	if start.IsZero() {
		return bus.Subscribe(ctx, f, h)
	}
	return bus.SubscribeSince(ctx, f, start, h)
}

// tailEvents печатает события, пока не прерван или не достигнут лимит
func tailEvents(ctx context.Context, bus *eventbus.JetStreamBus, f eventbus.Filter, start time.Time, limit int) error {
	fmt.Printf("🎬 Tailing events (limit: %d)\n", limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := subscribe(ctx, bus, f, start, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		printEvent(ev)
		count++
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам и источникам до паузы в потоке
func showStats(ctx context.Context, bus *eventbus.JetStreamBus, f eventbus.Filter, start time.Time, idle time.Duration) error {
	fmt.Println("📊 Event statistics")
	if idle <= 0 {
		idle = 2 * time.Second
	}

	var (
		mu       sync.Mutex
		total    int
		byType   = make(map[string]int)
		bySource = make(map[string]int)
		last     = time.Now()
	)
	sub, err := bus.SubscribeSince(ctx, f, start, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		total++
		byType[ev.EventType]++
		bySource[ev.Source]++
		last = time.Now()
		mu.Unlock()
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			mu.Lock()
			quiet := time.Since(last) >= idle
			mu.Unlock()
			if quiet {
				break wait
			}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Printf("Since: %s\n", start.UTC().Format(timeFormat))
	fmt.Printf("Total events: %d\n", total)
	fmt.Println("\nBy event type:")
	printCounts(byType)
	fmt.Println("\nBy source:")
	printCounts(bySource)
	return nil
}

func printCounts(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d events\n", k, m[k])
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n",
		ev.Timestamp.Format("15:04:05"),
		ev.Source,
		ev.EventType,
		ev.ID)

	// Добавляем детали в зависимости от типа события
	switch ev.EventType {
	case world.EventProgress:
		var p world.ProgressEvent
		if ev.Decode(&p) == nil {
			fmt.Printf("  %s: %.1f%% (phase: %v)\n", p.Label, p.Fraction*100, p.Phase)
		}
	case world.EventReady:
		var r world.ReadyEvent
		if ev.Decode(&r) == nil {
			fmt.Printf("  Seed: %d Size: %dx%dx%d in %.0fms\n", r.Seed, r.Width, r.Height, r.Layers, r.DurationMs)
		}
	case world.EventTileBroken:
		var b world.TileBrokenEvent
		if ev.Decode(&b) == nil {
			fmt.Printf("  Tile: %s (%d,%d) dropped: %d\n", b.Name, b.X, b.Y, b.Dropped)
		}
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m" или абсолютное
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	duration, err := time.ParseDuration(since)
	if err != nil {
		return time.Parse(timeFormat, since)
	}
	return from.Add(-duration), nil
}
