package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

const (
	MetricsNamespace = "cppunit_explorer"
)

var (
	Debug                bool = true
	validOutcomes             = []types.TestState{types.TestStatePassed, types.TestStateFailed, types.TestStateSkipped, types.TestStateErrored}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reconciliations_total",
		Help:      "Count of reconciled test cases by classification",
	}, []string{
		"kind",
	})

	reportLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_loads_total",
		Help:      "Count of report loads by result",
	}, []string{
		"result",
	})

	rejectedNamesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "rejected_names_total",
		Help:      "Count of report entries whose name could not be split into suite and case",
	})

	duplicateNamesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "duplicate_names_total",
		Help:      "Count of case names reported more than once in a single report",
	})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "outcomes_total",
		Help:      "Count of terminal test outcomes emitted during runs",
	}, []string{
		"state",
	})

	suiteRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_runs_total",
		Help:      "Count of suite runs by executable exit result",
	}, []string{
		"suite",
		"result",
	})

	suiteRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_run_duration_seconds",
		Help:      "Duration of suite runs including report reconciliation",
		Buckets:   prometheus.DefBuckets,
	}, []string{
		"suite",
	})

	modelSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "model_size",
		Help:      "Number of suites and cases held by the model store",
	}, []string{
		"type",
	})

	droppedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dropped_events_total",
		Help:      "Count of events dropped for slow subscribers",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordReconciliation(kind types.UpdateKind) {
	reconciliationsTotal.WithLabelValues(kind.String()).Inc()
}

func RecordReportLoad(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	reportLoadsTotal.WithLabelValues(result).Inc()
}

func RecordRejectedNames(n int) {
	rejectedNamesTotal.Add(float64(n))
}

func RecordDuplicateName() {
	duplicateNamesTotal.Inc()
}

func RecordOutcome(state types.TestState) {
	if !isValidOutcome(state) {
		log.Error("RecordOutcome - invalid state", "state", state)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "outcomes_total",
			"state", state)
	}
	outcomesTotal.WithLabelValues(string(state)).Inc()
}

func RecordSuiteRun(suite string, execErr error, duration time.Duration) {
	result := "ok"
	if execErr != nil {
		result = "exec_error"
	}
	suiteRunsTotal.WithLabelValues(suite, result).Inc()
	suiteRunDuration.WithLabelValues(suite).Observe(duration.Seconds())
}

func RecordModelSize(suites, cases int) {
	modelSize.WithLabelValues("suites").Set(float64(suites))
	modelSize.WithLabelValues("cases").Set(float64(cases))
}

func RecordDroppedEvent() {
	droppedEventsTotal.Inc()
}

func isValidOutcome(state types.TestState) bool {
	return slices.Contains(validOutcomes, state)
}
