// Package kv is a thin typed wrapper over the key-value store backing task
// descriptors, work-set membership, and completion signalling (spec
// component C7). It follows the same Config/New(cfg) shape as the example
// Redis pub/sub adapter, but talks to the store's list/set primitives
// directly rather than pub/sub.
package kv

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/scicore-run/forge/classify"
)

// Config configures the key-value connector.
type Config struct {
	// URL is the store connection URL (required). Format:
	// redis://[:password@]host:port[/db].
	URL string
}

// Client wraps a store connection with the list/set operations the
// submission, completion, and wait components need.
type Client struct {
	rdb *goredis.Client
}

// New creates a key-value connector from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("kv: requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("kv: invalid URL: %w", err)
	}

	return &Client{rdb: goredis.NewClient(opts)}, nil
}

// LPush pushes value onto the head of the list at key (descriptor storage).
func (c *Client) LPush(ctx context.Context, key string, value string) error {
	if err := c.rdb.LPush(ctx, key, value).Err(); err != nil {
		return classify.Wrap(classify.OpPut, key, err)
	}
	return nil
}

// LRangeHead returns the head element of the list at key, or "" if the list
// is empty. Used to read back a persisted descriptor non-destructively.
func (c *Client) LRangeHead(ctx context.Context, key string) (string, error) {
	vals, err := c.rdb.LRange(ctx, key, 0, 0).Result()
	if err != nil {
		return "", classify.Wrap(classify.OpGet, key, err)
	}
	if len(vals) == 0 {
		return "", nil
	}
	return vals[0], nil
}

// Del removes key entirely (used for descriptor rollback).
func (c *Client) Del(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return classify.Wrap(classify.OpPut, key, err)
	}
	return nil
}

// SAdd adds member to the set at key (work-set and completion-set writes).
func (c *Client) SAdd(ctx context.Context, key string, member string) error {
	if err := c.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return classify.Wrap(classify.OpPut, key, err)
	}
	return nil
}

// SRem removes member from the set at key (rollback and completion-set
// draining).
func (c *Client) SRem(ctx context.Context, key string, member string) error {
	if err := c.rdb.SRem(ctx, key, member).Err(); err != nil {
		return classify.Wrap(classify.OpPut, key, err)
	}
	return nil
}

// SCard reports the set's cardinality (used as watchWork's default
// "expected" count).
func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, classify.Wrap(classify.OpGet, key, err)
	}
	return n, nil
}

// SMembers returns all members of the set at key (work-set snapshot for
// watchWork).
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, classify.Wrap(classify.OpGet, key, err)
	}
	return members, nil
}

// SRandMember returns a random member of the set at key, or "" if the set
// is empty. Used both for polling the completion set and for the
// non-destructive exit-code fast-peek.
func (c *Client) SRandMember(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.SRandMember(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", classify.Wrap(classify.OpGet, key, err)
	}
	return val, nil
}

// MultiSRandMember batches a homogeneous sequence of SRandMember calls into
// a single pipelined round-trip, returning one result per key in order. A
// key with no member yields "" at that position.
func (c *Client) MultiSRandMember(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*goredis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.SRandMember(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, classify.Wrap(classify.OpGet, "multi", err)
	}

	out := make([]string, len(keys))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			return nil, classify.Wrap(classify.OpGet, keys[i], err)
		}
		out[i] = val
	}
	return out, nil
}

// Close releases the connector's resources.
func (c *Client) Close() error {
	return c.rdb.Close()
}
