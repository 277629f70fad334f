package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/manifest"
	"github.com/xtxerr/telemetrygen/internal/merge"
	"github.com/xtxerr/telemetrygen/internal/metrics"
	"github.com/xtxerr/telemetrygen/internal/progress"
	"github.com/xtxerr/telemetrygen/internal/registry"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/aggregate"
	"github.com/xtxerr/telemetrygen/internal/storage/backpressure"
	"github.com/xtxerr/telemetrygen/internal/storage/buffer"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Run executes a generation run. The configuration is validated before any
// file is created.
//
// Cancelling ctx is a controlled early completion: Run returns the summary
// with Termination interrupted and a nil error. On a generation or write
// failure the files are finalized with the row groups already appended and
// the error is returned together with the partial summary.
func Run(ctx context.Context, cfg RunConfig, opts ...Option) (*RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&cfg)
	for _, opt := range opts {
		opt(&o)
	}

	state := &RunState{
		RunID:      cfg.RunID,
		LaunchID:   cfg.LaunchID,
		LaunchTime: cfg.LaunchTime,
		Seed:       cfg.Seed,
		Started:    time.Now(),
	}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	if state.LaunchTime.IsZero() {
		state.LaunchTime = state.Started.UTC()
	}

	ctx = logging.ContextWithLaunchID(logging.ContextWithRunID(ctx, state.RunID), state.LaunchID)
	runLog := logging.WithContext(ctx).With("component", "pipeline")

	// Sources are built first: counts and spec errors surface before any
	// goroutine or file exists.
	sources := make([]registry.Source, len(cfg.Sensors))
	info := make(map[string]sensorInfo, len(cfg.Sensors))
	for i, spec := range cfg.Sensors {
		src, err := sensor.NewSource(spec, cfg.Duration, cfg.Seed)
		if err != nil {
			return nil, err
		}
		sources[i] = src
		state.Expected += src.Count()
	}
	if cfg.Pipeline.MaxRecords > 0 && cfg.Pipeline.MaxRecords < state.Expected {
		state.Expected = cfg.Pipeline.MaxRecords
	}

	router := sink.NewRouter(cfg.Sensors, cfg.Output.Rules)
	for _, spec := range cfg.Sensors {
		info[spec.ID] = sensorInfo{
			rate:      spec.Rate.String(),
			width:     spec.Components(),
			unit:      spec.Unit,
			partition: router.Route(spec),
		}
	}

	genCtx, cancelGen := context.WithCancel(ctx)
	defer cancelGen()

	var prefetch *merge.PrefetchGroup
	if cfg.Pipeline.Prefetch {
		prefetch = merge.NewPrefetchGroup(genCtx, cfg.Pipeline.PrefetchChunk)
		for i, src := range sources {
			sources[i] = prefetch.Wrap(src)
		}
		defer prefetch.Close()
	}

	reg, err := registry.New(sources, registry.WithRouter(router.Route))
	if err != nil {
		return nil, err
	}

	snk, err := sink.NewWithOpener(cfg.Output.Destinations(router.Partitions()), o.open)
	if err != nil {
		return nil, err
	}

	runLog.Info("run started",
		"sensors", len(cfg.Sensors),
		"duration", cfg.Duration,
		"expected_records", state.Expected,
		"partitions", len(router.Partitions()),
		"prefetch", cfg.Pipeline.Prefetch)

	r := &run{
		cfg:      &cfg,
		opts:     &o,
		state:    state,
		log:      runLog,
		sched:    merge.New(reg),
		queue:    buffer.NewQueue(cfg.Pipeline.QueueDepth),
		sink:     snk,
		aggs:     aggregate.NewManagerWithAccuracy(cfg.Pipeline.SketchAccuracy),
		metrics:  metrics.New(cfg.LaunchID),
		partList: router.Partitions(),
	}
	r.bp = backpressure.New(cfg.Backpressure, r.queue)
	r.bp.SetOnLevelChange(r.onBackpressureChange)
	if cfg.Progress {
		r.progress = progress.New(o.progress, state.Expected)
	}

	termination, runErr := r.execute(genCtx)

	summary := r.finish(termination, runErr)
	summary.Elapsed = time.Since(state.Started)

	if err := snk.Finalize(r.fileMeta(summary.Termination)); err != nil && runErr == nil {
		runErr = err
		summary.Termination = TerminationFailed
	}
	summary.Files = snk.Files()

	if cfg.Output.Manifest {
		path := cfg.Output.ManifestPath()
		if err := manifest.Write(path, summary.toManifest(info)); err != nil {
			runLog.Warn("manifest not written", "path", path, "error", err)
		} else {
			summary.Manifest = path
		}
	}

	r.metrics.SetRunSeconds(summary.Elapsed.Seconds())
	if runErr != nil {
		r.metrics.RecordError(errorClass(runErr))
	}
	if cfg.MetricsTextfile != "" {
		if err := r.metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			runLog.Warn("metrics textfile not written", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	runLog.Info("run finished",
		"termination", summary.Termination,
		"records", summary.TotalRecords,
		"files", len(summary.Files),
		"elapsed", summary.Elapsed)

	return summary, runErr
}

// run holds the components shared by the two stages.
type run struct {
	cfg   *RunConfig
	opts  *options
	state *RunState
	log   *slog.Logger

	sched    *merge.Scheduler
	queue    *buffer.Queue
	bp       *backpressure.Controller
	sink     *sink.Sink
	aggs     *aggregate.Manager
	metrics  *metrics.Metrics
	progress *progress.Reporter
	partList []string

	// Set by the writer stage before writerDone is closed.
	writeErr error
}

// execute runs both stages and waits for them.
func (r *run) execute(ctx context.Context) (Termination, error) {
	writerDone := make(chan struct{})
	var termination Termination

	var g errgroup.Group

	g.Go(func() error {
		t, err := r.generate(ctx, writerDone)
		termination = t
		return err
	})

	g.Go(func() error {
		defer close(writerDone)
		r.writeErr = r.write()
		return r.writeErr
	})

	err := g.Wait()
	if r.writeErr != nil {
		// Root cause; generation only saw the queue abort.
		err = r.writeErr
	}
	if err != nil {
		termination = TerminationFailed
	}
	return termination, err
}

// generate is the generation stage. It always closes the queue, after
// pushing every sealed batch, so the writer can drain and exit.
func (r *run) generate(ctx context.Context, writerDone <-chan struct{}) (Termination, error) {
	defer r.queue.Close()

	batchers := make(map[string]*buffer.Batcher, len(r.partList))
	for _, p := range r.partList {
		batchers[p] = buffer.NewBatcher(p, r.cfg.Output.Parquet.RowGroupSize)
	}

	push := func(b *types.Batch) error {
		select {
		case <-writerDone:
			return errors.ErrQueueAborted
		default:
		}
		if err := r.queue.Push(b, writerDone); err != nil {
			return err
		}
		r.bp.Check()
		return nil
	}

	// flush seals the partial batches in partition order.
	flush := func() error {
		for _, p := range r.partList {
			if b := batchers[p].Flush(); b != nil {
				if err := push(b); err != nil {
					return err
				}
			}
		}
		return nil
	}

	termination := TerminationCompleted
	limit := r.cfg.Pipeline.MaxRecords
	var n int64

	for {
		rec, ok, err := r.sched.Next(ctx)
		if err != nil {
			if errors.IsInterrupted(err) {
				termination = TerminationInterrupted
				r.log.Info("generation interrupted", "records", n)
				break
			}
			// Keep what was generated before the failure.
			if ferr := flush(); ferr != nil {
				r.log.Warn("partial batches not flushed", "error", ferr)
			}
			return TerminationFailed, err
		}
		if !ok {
			break
		}
		// A limit equal to the total completes the run.
		if limit > 0 && n >= limit {
			termination = TerminationLimited
			break
		}

		n++

		batcher, found := batchers[rec.Partition]
		if !found {
			return TerminationFailed, fmt.Errorf("record of sensor %s routed to unknown partition %q", rec.SensorID, rec.Partition)
		}
		if b := batcher.Add(rec); b != nil {
			if err := push(b); err != nil {
				return TerminationFailed, fmt.Errorf("push batch: %w", err)
			}
		}

		if r.opts.onRecord != nil {
			r.opts.onRecord(n, &rec)
		}
		if r.progress != nil {
			r.progress.Update(n)
		}
	}

	if err := flush(); err != nil {
		return TerminationFailed, fmt.Errorf("push batch: %w", err)
	}

	for _, p := range r.partList {
		st := batchers[p].Stats()
		r.log.Debug("batcher done", "partition", p, "batches", st.Sealed, "records", st.Records, "peak", st.Peak)
	}
	return termination, nil
}

// write is the writer stage: the only goroutine touching output files and
// aggregates.
func (r *run) write() error {
	for {
		b, ok := r.queue.Pop()
		if !ok {
			return nil
		}

		start := time.Now()
		if err := r.sink.Write(b); err != nil {
			return err
		}
		r.metrics.RecordRowGroup(b.Partition, b.Len(), time.Since(start).Seconds())
		r.aggs.ProcessBatch(b)
		r.state.written.Add(int64(b.Len()))

		qs := r.queue.Stats()
		r.metrics.SetQueue(qs.Count, qs.BlockedCount)
	}
}

func (r *run) onBackpressureChange(old, level backpressure.Level) {
	r.metrics.SetBackpressureLevel(int(level))
	if level > old {
		r.log.Warn("writer falling behind", "from", old.String(), "to", level.String(), "queue", r.queue.Len())
	} else {
		r.log.Info("writer caught up", "from", old.String(), "to", level.String(), "queue", r.queue.Len())
	}
}

// finish builds the summary once both stages have stopped.
func (r *run) finish(termination Termination, err error) *RunSummary {
	if r.progress != nil {
		r.progress.Finish()
	}

	if err != nil {
		r.log.Warn("run failed", "error", err, "records_written", r.state.Written())
	}

	return &RunSummary{
		RunID:        r.state.RunID,
		LaunchID:     r.state.LaunchID,
		LaunchTime:   r.state.LaunchTime,
		Seed:         r.state.Seed,
		Duration:     r.cfg.Duration,
		TotalRecords: r.state.Written(),
		Expected:     r.state.Expected,
		Termination:  termination,
		Sensors:      r.aggs.Results(),
	}
}

func (r *run) fileMeta(t Termination) map[string]string {
	return map[string]string{
		parquet.MetaRunID:       r.state.RunID,
		parquet.MetaLaunchID:    r.state.LaunchID,
		parquet.MetaLaunchTime:  r.state.LaunchTime.UTC().Format(time.RFC3339Nano),
		parquet.MetaSeed:        fmt.Sprint(r.state.Seed),
		parquet.MetaTermination: string(t),
	}
}

func errorClass(err error) string {
	switch {
	case errors.IsConfig(err):
		return "config"
	case errors.IsGeneration(err):
		return "generation"
	case errors.IsWrite(err):
		return "write"
	default:
		return "unknown"
	}
}
