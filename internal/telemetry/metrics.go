package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus. Регистрируются в default registry через promauto,
// наружу отдаются через promhttp в main каждого сервиса.
var (
	// ItemsClaimed — сколько items worker'ы забрали из очереди.
	ItemsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_items_claimed_total",
		Help: "Total work items claimed by workers",
	})

	// ItemsFinished — сколько items завершено, по исходу.
	ItemsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_items_finished_total",
		Help: "Total work items finished, by outcome",
	}, []string{"outcome"})

	// ItemDuration — длительность выполнения item'а от claim до complete.
	ItemDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_item_duration_seconds",
		Help:    "Work item execution time from claim to completion",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	// QueuePolls — опросы очереди, по результату (claimed / empty / error).
	QueuePolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_queue_polls_total",
		Help: "Queue poll attempts, by result",
	}, []string{"result"})

	// Corrections — применённые обработчиками коррекции.
	Corrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_corrections_total",
		Help: "Total corrections applied by error handlers",
	})

	// ProcessRestarts — перезапуски supervised-процессов после коррекций.
	ProcessRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_process_restarts_total",
		Help: "Total supervised process restarts triggered by corrections",
	})

	// ScheduleSubmissions — items, созданные планировщиком.
	ScheduleSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_schedule_submissions_total",
		Help: "Total work items submitted by the scheduler",
	})
)

// Значения label outcome для ItemsFinished.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
