// Package telemetry exposes prometheus metrics for the simulation engine.
// Scrape them from /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"phonesim/pkg/store"
)

var (
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phonesim_polls_total",
		Help: "Poll scheduler runs by trigger and chosen action.",
	}, []string{"trigger", "action"})

	PollsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonesim_polls_skipped_total",
		Help: "Polls rejected by the rate gate.",
	})

	MessagesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonesim_messages_generated_total",
		Help: "Synthetic inbound messages appended.",
	})

	GenerationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonesim_generation_failures_total",
		Help: "Individual generation calls that failed and were skipped.",
	})

	ContactsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonesim_contacts_unlocked_total",
		Help: "Contacts unlocked by narrative text.",
	})

	PhotosAttached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phonesim_photos_attached_total",
		Help: "Photo attachments added to synthetic messages.",
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "phonesim_store_disk_bytes",
		Help: "Best-effort on-disk size of the pebble store.",
	}, func() float64 { return float64(store.DiskUsage()) })
)
