package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/internal/directory"
	"github.com/MrEthical07/panelcore/session"
)

type benchOptions struct {
	users       int
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
}

var benchOpts benchOptions

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure session create, verify and audit record throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.Context(), cmd.OutOrStdout(), benchOpts)
	},
}

func init() {
	f := benchCmd.Flags()
	f.IntVar(&benchOpts.users, "users", 100, "number of directory users")
	f.IntVar(&benchOpts.sessions, "sessions", 10000, "sessions created in the create phase")
	f.IntVar(&benchOpts.concurrency, "concurrency", 64, "concurrent workers")
	f.IntVar(&benchOpts.ops, "ops", 50000, "operations in the verify and record phases")
	f.StringVar(&benchOpts.redisAddr, "redis-addr", "", "redis address; in-process miniredis when empty")
	rootCmd.AddCommand(benchCmd)
}

func runBench(ctx context.Context, out io.Writer, opts benchOptions) error {
	if opts.users <= 0 || opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return fmt.Errorf("users, sessions, concurrency and ops must be > 0")
	}

	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	records := make([]panelcore.UserRecord, opts.users)
	for i := range records {
		records[i] = panelcore.UserRecord{User: panelcore.User{
			ID:     fmt.Sprintf("user-%d", i),
			Email:  fmt.Sprintf("user-%d@bench.local", i),
			Role:   panelcore.RoleUnitManager,
			UnitID: fmt.Sprintf("U%d", i%8),
			Status: panelcore.StatusActive,
		}}
	}
	dir, err := directory.New(records)
	if err != nil {
		return err
	}

	cfg := panelcore.DefaultConfig()
	cfg.Audit.RecordSessionEvents = false
	engine, err := panelcore.New().
		WithConfig(cfg).
		WithUserProvider(dir).
		WithSessionStore(session.NewRedisStore(client, "bench:s")).
		WithAuditStore(audit.NewRedisStore(client, "bench:a")).
		Build(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	tokens := make([]string, opts.sessions)
	create := runPhase(opts.sessions, opts.concurrency, func(i int, _ *rand.Rand) error {
		grant, err := engine.CreateSession(ctx, records[i%len(records)].ID, "127.0.0.1", "panelcore-bench")
		if err != nil {
			return err
		}
		tokens[i] = grant.Token
		return nil
	})

	verify := runPhase(opts.ops, opts.concurrency, func(_ int, r *rand.Rand) error {
		token := tokens[r.Intn(len(tokens))]
		if token == "" {
			return panelcore.ErrSessionNotFound
		}
		_, err := engine.VerifySession(ctx, token, "127.0.0.1")
		return err
	})

	record := runPhase(opts.ops, opts.concurrency, func(i int, r *rand.Rand) error {
		u := records[r.Intn(len(records))]
		res := engine.Record(ctx, audit.Input{
			ActorID:    u.ID,
			Action:     "vehicles.update",
			Module:     "vehicles",
			EntityType: "vehicle",
			EntityID:   fmt.Sprintf("V%d", i),
			UnitID:     u.UnitID,
		})
		return res.Err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "create", create)
	printStats(out, "verify", verify)
	printStats(out, "record", record)
	return nil
}

// runPhase spreads ops calls of fn over concurrency workers and collects
// per-call latency.
func runPhase(ops, concurrency int, fn func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
