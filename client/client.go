// Package client wires the connectors and engines into the single object
// an application program depends on: configure once, then submit and wait.
// It owns the store connection, the queue connection, and one completion
// connector per work, all of which terminate on Close (spec §9,
// "Ownership of connectors").
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/scicore-run/forge/completion"
	"github.com/scicore-run/forge/config"
	"github.com/scicore-run/forge/kv"
	"github.com/scicore-run/forge/log"
	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/objectstore"
	"github.com/scicore-run/forge/queue"
	"github.com/scicore-run/forge/submission"
	"github.com/scicore-run/forge/wait"
)

// Client is the top-level handle an application holds: a configured store,
// queue, and key-value connection, plus the submission and wait engines
// built atop them.
type Client struct {
	cfg config.Config
	log *log.Logger

	kv      *kv.Client
	queue   *queue.Connector
	objects *objectstore.Client

	submission *submission.Engine
	wait       *wait.Engine

	connMu     sync.Mutex
	connectors map[string]*completion.Connector
}

// New constructs every connector and engine from cfg. The object-store
// client is constructed eagerly (it needs to resolve AWS credentials,
// which can fail); the queue and key-value connections stay lazy per their
// own connector semantics.
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	kvClient, err := kv.New(kv.Config{URL: cfg.KV.URL})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	queueConn, err := queue.New(queue.Config{URL: cfg.Queue.URL, Heartbeat: cfg.Queue.Heartbeat.Duration})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	objClient, err := objectstore.NewClient(ctx, objectstore.Config{
		Region:       cfg.ObjectStore.Region,
		Endpoint:     cfg.ObjectStore.Endpoint,
		UsePathStyle: cfg.ObjectStore.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	logger := log.NewLogger(cfg.DefaultWorkID)

	c := &Client{
		cfg:        cfg,
		log:        logger,
		kv:         kvClient,
		queue:      queueConn,
		objects:    objClient,
		connectors: make(map[string]*completion.Connector),
	}

	c.submission = submission.New(kvClient, queueConn, objClient, cfg.DefaultWorkID)
	c.wait = wait.New(kvClient, c.completionConnectorFor)

	return c, nil
}

// completionConnectorFor lazily creates (and caches) one completion
// connector per WorkId, sharing this client's key-value connection and
// logger.
func (c *Client) completionConnectorFor(workID string) *completion.Connector {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if conn, ok := c.connectors[workID]; ok {
		return conn
	}

	conn := completion.New(c.kv, completion.Config{
		WorkID:       workID,
		PollInterval: c.cfg.PollInterval.Duration,
		Logger:       c.log.Sugar().With("work_id", workID),
	})
	c.connectors[workID] = conn
	return conn
}

// CreateSingle submits one task from the manifest.
func (c *Client) CreateSingle(ctx context.Context, man manifest.Manifest) (submission.SingleResult, error) {
	return c.submission.CreateSingle(ctx, man)
}

// CreateBatch expands the manifest via the batch planner and submits one
// task per plan item.
func (c *Client) CreateBatch(ctx context.Context, man manifest.Manifest, opts submission.BatchOptions) (submission.BatchResult, error) {
	return c.submission.CreateBatch(ctx, man, opts)
}

// WaitForTask waits for a single task's completion.
func (c *Client) WaitForTask(ctx context.Context, workID, taskID string, opts wait.WaitForTaskOptions) (wait.Result, error) {
	return c.wait.WaitForTask(ctx, workID, taskID, opts)
}

// WaitForMany waits for a set of tasks.
func (c *Client) WaitForMany(ctx context.Context, workID string, taskIDs []string, opts wait.WaitForManyOptions) (wait.ManyResult, error) {
	return c.wait.WaitForMany(ctx, workID, taskIDs, opts)
}

// WatchWork watches an entire work's task set to completion, timeout, or
// idle.
func (c *Client) WatchWork(ctx context.Context, workID string, opts wait.WatchOptions) (wait.WatchResult, error) {
	return c.wait.WatchWork(ctx, workID, opts)
}

// Close stops every completion connector, then closes the queue and
// key-value connections. Outstanding waiters resolve to nothing; it is the
// caller's responsibility to drop references to them.
func (c *Client) Close() error {
	c.connMu.Lock()
	for _, conn := range c.connectors {
		conn.Stop()
	}
	c.connMu.Unlock()

	var firstErr error
	if err := c.queue.Close(); err != nil {
		firstErr = err
	}
	if err := c.kv.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
