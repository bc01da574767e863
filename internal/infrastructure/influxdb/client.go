package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/hkbridge/internal/infrastructure/config"
)

// Default timeouts and batching values.
const (
	defaultConnectTimeout = 10 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000

	// eventsMeasurement is the measurement name for mirrored log entries.
	eventsMeasurement = "events"
)

// Client wraps the InfluxDB v2 client with event-mirroring functionality.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Writes are non-blocking and batched.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig
}

// Connect establishes a connection to the InfluxDB server.
//
// It creates the client with token authentication, verifies connectivity
// with a ping, and configures the non-blocking write API with batching.
//
// Returns ErrDisabled if InfluxDB is disabled in config.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: ping returned unhealthy", ErrConnectionFailed)
	}

	return &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
	}, nil
}

// SetOnError registers a callback for asynchronous write failures.
// Without a callback, failed writes are silently dropped.
func (c *Client) SetOnError(callback func(err error)) {
	go func() {
		for err := range c.writeAPI.Errors() {
			callback(err)
		}
	}()
}

// WriteEvent mirrors one event-log entry as a point. Non-blocking: the
// point is queued and flushed by the batching write API.
//
// Tags carry the dimensions used for filtering (kind, accessory,
// characteristic); the value and remaining context go into fields.
func (c *Client) WriteEvent(ts time.Time, kind, accessory, room, service, characteristic, value string) {
	point := influxdb2.NewPointWithMeasurement(eventsMeasurement).
		AddTag("kind", kind).
		SetTime(ts)

	if accessory != "" {
		point.AddTag("accessory", accessory)
	}
	if characteristic != "" {
		point.AddTag("characteristic", characteristic)
	}
	if room != "" {
		point.AddField("room", room)
	}
	if service != "" {
		point.AddField("service", service)
	}
	point.AddField("value", value)

	c.writeAPI.WritePoint(point)
}

// Flush forces all buffered points to be written immediately.
func (c *Client) Flush() {
	c.writeAPI.Flush()
}

// Close flushes buffered points and releases the client.
func (c *Client) Close() error {
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
