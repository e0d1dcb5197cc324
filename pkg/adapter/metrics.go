package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for adapter operations.
var (
	findManyGroupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tastypie_findmany_groups_total",
		Help: "Total number of find-many groups planned",
	})

	findManyGroupSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tastypie_findmany_group_size",
		Help:    "Number of records per find-many group",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastypie_rejections_total",
		Help: "Total rejected adapter requests by operation",
	}, []string{"operation"})
)
