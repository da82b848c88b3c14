package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsTaken counts profile snapshots staged by the capture session.
	SnapshotsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitorgate_snapshots_total",
		Help: "Profile snapshots staged by the capture session.",
	})

	// SavesTotal counts record saves by upsert outcome.
	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitorgate_saves_total",
		Help: "Visit record saves by upsert outcome.",
	}, []string{"outcome"})

	// BackupsTotal counts backup uploads by result.
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitorgate_backups_total",
		Help: "Datastore backup uploads by result.",
	}, []string{"result"})
)
