// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

type MemoryLimitError struct {
	Component string
	Usage     uint64
	Limit     uint64
}

func (e MemoryLimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded for %s: %d > %d", e.Component, e.Usage, e.Limit)
}

var (
	initOnce sync.Once

	llmCallTotal    *expvar.Map
	llmRetryTotal   *expvar.Int
	llmLatencyMS    *expvar.Map
	llmFailureTotal *expvar.Map

	checklistResolveTotal *expvar.Int
	checklistCacheHits    *expvar.Int

	caseRunTotal    *expvar.Int
	caseRunFailures *expvar.Int
	caseRunLatency  *expvar.Int

	memoryLimitBytes uint64
	memoryLimitVar   *expvar.Int
	memoryUsageVar   *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		llmCallTotal = expvar.NewMap("auditor_llm_calls_total")
		llmRetryTotal = expvar.NewInt("auditor_llm_retries_total")
		llmLatencyMS = expvar.NewMap("auditor_llm_latency_ms")
		llmFailureTotal = expvar.NewMap("auditor_llm_failures_total")

		checklistResolveTotal = expvar.NewInt("auditor_checklist_resolutions_total")
		checklistCacheHits = expvar.NewInt("auditor_checklist_cache_hits")

		caseRunTotal = expvar.NewInt("auditor_case_runs_total")
		caseRunFailures = expvar.NewInt("auditor_case_run_failures")
		caseRunLatency = expvar.NewInt("auditor_case_run_latency_ms")

		memoryLimitVar = expvar.NewInt("auditor_memory_limit_bytes")
		memoryUsageVar = expvar.NewInt("auditor_memory_usage_bytes")

		memoryLimitBytes = loadMemoryLimit()
		memoryLimitVar.Set(int64(memoryLimitBytes))
	})
}

func loadMemoryLimit() uint64 {
	if limit := strings.TrimSpace(os.Getenv("AUDITOR_MEMORY_LIMIT_BYTES")); limit != "" {
		if value, err := strconv.ParseUint(limit, 10, 64); err == nil {
			return value
		}
	}
	if limitMB := strings.TrimSpace(os.Getenv("AUDITOR_MEMORY_LIMIT_MB")); limitMB != "" {
		if value, err := strconv.ParseUint(limitMB, 10, 64); err == nil {
			return value * 1024 * 1024
		}
	}
	return 0
}

func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordLLMCall tracks one completed model invocation. retries counts the
// attempts beyond the first; failed marks calls that exhausted their retries.
func RecordLLMCall(model string, retries int, duration time.Duration, failed bool) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(model))
	if key == "" {
		key = "unknown"
	}
	llmCallTotal.Add(key, 1)
	if retries > 0 {
		llmRetryTotal.Add(int64(retries))
	}
	if duration > 0 {
		llmLatencyMS.Add(key, duration.Milliseconds())
	}
	if failed {
		llmFailureTotal.Add(key, 1)
	}
}

func RecordChecklistLookup(cacheHit bool) {
	ensureInit()
	checklistResolveTotal.Add(1)
	if cacheHit {
		checklistCacheHits.Add(1)
	}
}

func RecordCaseRun(failed bool, duration time.Duration) {
	ensureInit()
	caseRunTotal.Add(1)
	if failed {
		caseRunFailures.Add(1)
	}
	if duration > 0 {
		caseRunLatency.Add(duration.Milliseconds())
	}
}

func CheckMemoryBudget(component string) error {
	ensureInit()
	if memoryLimitBytes == 0 {
		updateMemoryUsage()
		return nil
	}
	usage := updateMemoryUsage()
	if usage > memoryLimitBytes {
		err := MemoryLimitError{Component: component, Usage: usage, Limit: memoryLimitBytes}
		common.Logger().Warn("telemetry: memory guard tripped", "component", component, "usage", usage, "limit", memoryLimitBytes)
		return err
	}
	return nil
}

func updateMemoryUsage() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	usage := stats.Alloc
	memoryUsageVar.Set(int64(usage))
	return usage
}

func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
