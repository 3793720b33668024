// Package redis mirrors delivered records into a Redis stream.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/ibs-source/sonar-consumer/internal/message"
	"github.com/ibs-source/sonar-consumer/pkg/schema"
	"github.com/redis/go-redis/v9"
)

// Stream entry fields
const (
	fieldID         = "id"
	fieldType       = "type"
	fieldLseq       = "lseq"
	fieldCollection = "collection"
	fieldCursor     = "cursor"
	fieldDelivery   = "delivery"
	fieldRecord     = "record"
)

// Client appends records to one Redis stream
type Client struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	log    *log.Logger
}

// Entry is one mirrored record read back from the stream
type Entry struct {
	StreamID   string
	Collection string
	Cursor     uint64
	Delivery   string
	Record     schema.Record
}

// NewClient creates a new Redis client and checks the connection
func NewClient(cfg *config.RedisConfig, logger *log.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Mirroring records to Redis stream '%s'", cfg.Stream)

	return &Client{
		rdb:    rdb,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		log:    logger,
	}, nil
}

// Name identifies the sink in logs and metrics
func (c *Client) Name() string {
	return "redis"
}

// Stream returns the stream key records are appended to
func (c *Client) Stream() string {
	return c.stream
}

// Deliver appends one envelope with XADD, trimming the stream approximately to MaxLen
func (c *Client) Deliver(ctx context.Context, env message.Envelope) error {
	args := addArgs(c.stream, c.maxLen, env)
	if err := c.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd to %s failed for record %s: %w", c.stream, env.Record.ID, err)
	}
	return nil
}

// Range reads up to count mirrored entries starting at stream ID start ("-" for the oldest)
func (c *Client) Range(ctx context.Context, start string, count int64) ([]Entry, error) {
	msgs, err := c.rdb.XRangeN(ctx, c.stream, start, "+", count).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xrange on %s failed: %w", c.stream, err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entry, err := parseEntry(msg)
		if err != nil {
			c.log.Warn("Skipping stream entry %s: %v", msg.ID, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// addArgs builds the XADD arguments for env. Values are ordered field/value pairs.
func addArgs(stream string, maxLen int64, env message.Envelope) *redis.XAddArgs {
	lseq := ""
	if env.Record.Lseq != nil {
		lseq = strconv.FormatUint(*env.Record.Lseq, 10)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: []interface{}{
			fieldID, env.Record.ID,
			fieldType, env.Record.Type,
			fieldLseq, lseq,
			fieldCollection, env.Collection,
			fieldCursor, strconv.FormatUint(env.Cursor, 10),
			fieldDelivery, env.Delivery,
			fieldRecord, env.Binary(),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

// parseEntry decodes a stream message written by Deliver
func parseEntry(msg redis.XMessage) (Entry, error) {
	raw, ok := msg.Values[fieldRecord].(string)
	if !ok {
		return Entry{}, fmt.Errorf("missing %s field", fieldRecord)
	}
	var rec schema.Record
	if err := rec.UnmarshalBinary([]byte(raw)); err != nil {
		return Entry{}, err
	}

	entry := Entry{StreamID: msg.ID, Record: rec}
	entry.Collection, _ = msg.Values[fieldCollection].(string)
	entry.Delivery, _ = msg.Values[fieldDelivery].(string)
	if cursor, ok := msg.Values[fieldCursor].(string); ok {
		n, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid %s field: %w", fieldCursor, err)
		}
		entry.Cursor = n
	}
	return entry, nil
}
