package translate

import (
	"context"
	"time"
)

// DefaultKeepaliveInterval is how often idle connections are refreshed
const DefaultKeepaliveInterval = 45 * time.Second

// KeepAlive warms up client once, then calls Keepalive every interval
// until ctx is done
func KeepAlive(ctx context.Context, client StreamingClient, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}

	client.Warmup(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.Keepalive(ctx)
		}
	}
}
