package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds one plugin run.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a plugin does not answer in time.
var ErrTimeout = errors.New("plugin execution timed out")

// Executor runs plugin executables.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A timeout <= 0 uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs the plugin with req on stdin and parses its stdout.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s after %s: %w", p.Manifest.Name, e.timeout, ErrTimeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("run %s: %w, stderr: %s", p.Manifest.Name, err, stderr.String())
		}
		return nil, fmt.Errorf("run %s: %w", p.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w, stdout: %s", p.Manifest.Name, err, stdout.String())
	}
	return &resp, nil
}

// DefaultQueueSize is the number of pending activations a Dispatcher holds.
const DefaultQueueSize = 32

type job struct {
	plugin  *Plugin
	request *Request
}

// Dispatcher delivers activations to matching plugins on a background
// worker so the frame loop never waits on a plugin. When the queue is full
// new activations are dropped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   logrus.FieldLogger
	queue    chan job
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the dispatch worker.
func NewDispatcher(manager *Manager, executor *Executor, logger logrus.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		logger:   logger,
		queue:    make(chan job, DefaultQueueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Dispatch queues the activation for every matching plugin and returns how
// many runs were queued.
func (d *Dispatcher) Dispatch(sessionID string, mv Movement) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0
	}

	queued := 0
	for _, p := range d.manager.Match(mv) {
		req := &Request{
			Event:     EventActivated,
			SessionID: sessionID,
			Movement:  mv,
			Config:    p.Manifest.Config,
		}
		select {
		case d.queue <- job{plugin: p, request: req}:
			queued++
		default:
			d.logger.WithField("plugin", p.Manifest.Name).Warn("Plugin queue full, dropping activation")
		}
	}
	return queued
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.queue {
		log := d.logger.WithFields(logrus.Fields{
			"plugin":   j.plugin.Manifest.Name,
			"analyzer": j.request.Movement.AnalyzerID,
		})
		resp, err := d.executor.Execute(context.Background(), j.plugin, j.request)
		switch {
		case err != nil:
			log.Warnf("Plugin failed: %v", err)
		case !resp.Success:
			log.Warnf("Plugin reported failure: %s", resp.Error)
		default:
			log.Debug("Plugin handled activation")
		}
	}
}

// Close stops accepting activations and waits for queued runs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
