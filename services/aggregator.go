// aggregator.go - load cycles: manifest -> hosts files -> rows -> resolution
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"hostsboard/common"
)

// NameResolver resolves one host name. *Resolver is the production one.
type NameResolver interface {
	Resolve(ctx context.Context, fqdn string, useLocal bool) (string, error)
}

// LoadOptions are the per-cycle user choices.
type LoadOptions struct {
	UseLocalResolver bool `json:"use_local_resolver"`
}

type AggregatorConfig struct {
	Client      *http.Client
	ManifestURL string
	HostsPath   string
	Resolver    NameResolver
	// Concurrency bounds in-flight resolutions across all cycles.
	Concurrency int
}

// Summary describes a finished (or aborted) load cycle.
type Summary struct {
	Cycle      string   `json:"cycle"`
	Generation uint64   `json:"generation"`
	Repos      int      `json:"repos"`
	Hosts      int      `json:"hosts"`
	Skipped    []string `json:"skipped,omitempty"`
}

// Aggregator owns the table and drives load cycles. Repositories within a
// cycle are fetched one at a time; resolutions run in the background.
type Aggregator struct {
	cfg   AggregatorConfig
	table *Table
	sink  Sink
	sem   *semaphore.Weighted

	runMu sync.Mutex // one cycle body at a time
	wg    sync.WaitGroup

	mu     sync.Mutex
	base   context.Context
	cancel context.CancelFunc
	cycle  string
	status Status
}

// NewAggregator builds an aggregator whose cycles live under ctx.
func NewAggregator(ctx context.Context, cfg AggregatorConfig, sink Sink) *Aggregator {
	if sink == nil {
		sink = discardSink{}
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.HostsPath == "" {
		cfg.HostsPath = "/terraform/hostsfile/hosts"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Aggregator{
		cfg:   cfg,
		table: NewTable(sink),
		sink:  sink,
		sem:   semaphore.NewWeighted(int64(cfg.Concurrency)),
		base:  ctx,
	}
}

func (a *Aggregator) Table() *Table { return a.table }

// Status returns the latest status line.
func (a *Aggregator) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Cycle returns the identifier of the most recently started cycle.
func (a *Aggregator) Cycle() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cycle
}

// Reload cancels the running cycle, if any, and starts a new one in the
// background. It returns the new cycle identifier.
func (a *Aggregator) Reload(opts LoadOptions) string {
	ctx, id := a.begin(a.base)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.run(ctx, id, opts); err != nil && !errors.Is(err, context.Canceled) {
			common.DebugLog("cycle %s: %v", id, err)
		}
	}()
	return id
}

// Run executes one load cycle synchronously, cancelling the running cycle
// like Reload does. It returns once every repository has been processed;
// resolutions may still be in flight (see Wait).
func (a *Aggregator) Run(ctx context.Context, opts LoadOptions) (Summary, error) {
	ctx, id := a.begin(ctx)
	return a.run(ctx, id, opts)
}

// begin cancels the current cycle and registers a new one under parent.
func (a *Aggregator) begin(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = cancel
	a.cycle = id
	return ctx, id
}

// Wait blocks until background cycles and their resolutions have settled.
func (a *Aggregator) Wait() { a.wg.Wait() }

// Stop cancels the current cycle.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
}

func (a *Aggregator) run(ctx context.Context, id string, opts LoadOptions) (Summary, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if err := ctx.Err(); err != nil {
		return Summary{Cycle: id}, err
	}

	gen := a.table.Reset()
	sum := Summary{Cycle: id, Generation: gen}
	common.InfoLog("cycle %s: start generation=%d local_resolver=%t", id, gen, opts.UseLocalResolver)
	a.setStatus(id, LevelInfo, "Loading repository manifest...")

	repos, err := FetchManifest(ctx, a.cfg.Client, a.cfg.ManifestURL)
	if err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		common.ErrorLog("cycle %s: %v", id, err)
		a.setStatus(id, LevelError, fmt.Sprintf("Failed to load repository manifest: %v", err))
		return sum, err
	}
	sum.Repos = len(repos)
	common.InfoLog("cycle %s: manifest lists %d repositories", id, len(repos))

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			common.InfoLog("cycle %s: superseded after %d hosts", id, sum.Hosts)
			return sum, err
		}
		a.setStatus(id, LevelInfo, fmt.Sprintf("Loading %s...", repo.Name))

		text, err := FetchHostsFile(ctx, a.cfg.Client, repo, a.cfg.HostsPath)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Skipped = append(sum.Skipped, repo.Name)
			common.WarnLog("cycle %s: skipping %s: %v", id, repo.Name, err)
			a.setStatus(id, LevelWarn, fmt.Sprintf("Skipping %s: %v", repo.Name, err))
			continue
		}

		n := 0
		for _, rec := range ParseHostsFile(text, repo.Name) {
			if !a.table.Append(gen, rec) {
				common.DebugLog("cycle %s: %s: duplicate or stale row %s", id, repo.Name, rec.FQDN)
				continue
			}
			n++
			a.resolveAsync(ctx, gen, rec.FQDN, opts.UseLocalResolver)
		}
		sum.Hosts += n
		common.InfoLog("cycle %s: %s: %d hosts", id, repo.Name, n)
	}

	msg := fmt.Sprintf("Loaded %d hosts from %d repositories", sum.Hosts, sum.Repos)
	level := LevelInfo
	if len(sum.Skipped) > 0 {
		level = LevelWarn
		msg += fmt.Sprintf(" (skipped: %s)", strings.Join(sum.Skipped, ", "))
	}
	a.setStatus(id, level, msg)
	common.InfoLog("cycle %s: %s", id, msg)
	return sum, nil
}

// resolveAsync resolves fqdn without blocking the caller and writes the
// result into the row of generation gen.
func (a *Aggregator) resolveAsync(ctx context.Context, gen uint64, fqdn string, useLocal bool) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer a.sem.Release(1)

		ip, err := a.cfg.Resolver.Resolve(ctx, fqdn, useLocal)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			common.WarnLog("resolve %s: %v", fqdn, err)
			ip = IPUnavailable
		}
		if !a.table.UpdateIP(gen, fqdn, ip) {
			common.DebugLog("resolve %s: dropped stale result (generation %d)", fqdn, gen)
		}
	}()
}

func (a *Aggregator) setStatus(cycle, level, msg string) {
	st := Status{Level: level, Message: common.Redact(msg), Cycle: cycle, At: time.Now()}
	a.mu.Lock()
	if a.cycle != cycle {
		a.mu.Unlock()
		return
	}
	a.status = st
	a.mu.Unlock()
	a.sink.Publish(Event{Type: EventStatus, Generation: a.table.Generation(), Status: &st})
}
