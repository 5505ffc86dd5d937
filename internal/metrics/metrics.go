// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics implements node.Recorder on top of Prometheus counters
// and gauges, with a parallel OpenTelemetry observable gauge mirroring the
// pool-size signals -- the same dual exporter wiring the teacher's
// common/otel_metrics.go and common/oc_metrics.go use for fs-op counters.
package metrics

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// PoolSizer reports the live gauges a Recorder can't observe from
// lifecycle events alone: the free list is a FIFO whose length rises and
// falls outside of any single recorded event.
type PoolSizer interface {
	FreelistLen() int
	Allocated() int64
}

// Recorder implements node.Recorder, counting node lifecycle transitions
// and exporting them through Prometheus (via promauto, registered against
// the registry given to NewRecorder) and OpenTelemetry (via observable
// gauges reading the same atomics).
type Recorder struct {
	created   prometheus.Counter
	recycled  prometheus.Counter
	destroyed prometheus.Counter
	pooled    prometheus.Counter
	reclaimed prometheus.Counter

	nodesAllocated atomic.Int64
	freelistLength atomic.Int64
	indexSize      atomic.Int64
	freshAllocs    atomic.Int64

	nodesAllocatedGauge prometheus.Gauge
	freelistLengthGauge prometheus.Gauge
	indexSizeGauge      prometheus.Gauge
	freshAllocsGauge    prometheus.Gauge
}

// NewRecorder creates the nodes_created_total, nodes_recycled_total,
// destroy_total, nodes_pooled_total, and reclaim_total counters and the
// nodes_allocated, freelist_length, index_size, and nodes_fresh_total gauges,
// registers them against reg, and returns a Recorder ready to be assigned to
// Cache.Metrics. Passing nil registers them nowhere.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	r := &Recorder{
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodes_created_total",
			Help: "Cumulative number of nodes allocated fresh from the slab allocator.",
		}),
		recycled: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodes_recycled_total",
			Help: "Cumulative number of nodes reused from the free list instead of allocated fresh.",
		}),
		destroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "destroy_total",
			Help: "Cumulative number of nodes torn down and returned to the allocator.",
		}),
		pooled: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodes_pooled_total",
			Help: "Cumulative number of nodes pushed onto the free list.",
		}),
		reclaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_total",
			Help: "Cumulative number of nodes reclaimed off the free list under memory pressure.",
		}),
		nodesAllocatedGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodes_allocated",
			Help: "Current number of nodes allocated from the slab allocator.",
		}),
		freelistLengthGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freelist_length",
			Help: "Current number of nodes sitting on the process-wide free list.",
		}),
		indexSizeGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "index_size",
			Help: "Current number of entries in a mount's path index.",
		}),
		freshAllocsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodes_fresh_total",
			Help: "Monotonic count of nodes minted fresh from the allocator rather than recycled off the free list (original_source/'s fusenodenew).",
		}),
	}

	return r
}

// NodeCreated implements node.Recorder.
func (r *Recorder) NodeCreated() {
	r.created.Inc()
	r.nodesAllocated.Add(1)
	r.nodesAllocatedGauge.Set(float64(r.nodesAllocated.Load()))
}

// NodeRecycled implements node.Recorder.
func (r *Recorder) NodeRecycled() {
	r.recycled.Inc()
	r.freelistLength.Add(-1)
	r.freelistLengthGauge.Set(float64(r.freelistLength.Load()))
}

// NodeDestroyed implements node.Recorder.
func (r *Recorder) NodeDestroyed() {
	r.destroyed.Inc()
	r.nodesAllocated.Add(-1)
	r.nodesAllocatedGauge.Set(float64(r.nodesAllocated.Load()))
}

// NodePooled implements node.Recorder.
func (r *Recorder) NodePooled() {
	r.pooled.Inc()
	r.freelistLength.Add(1)
	r.freelistLengthGauge.Set(float64(r.freelistLength.Load()))
}

// NodeReclaimed implements node.Recorder.
func (r *Recorder) NodeReclaimed() {
	r.reclaimed.Inc()
	r.freelistLength.Add(-1)
	r.freelistLengthGauge.Set(float64(r.freelistLength.Load()))
}

// SetIndexSize updates the index_size gauge; callers report this after an
// Install/Remove from the path index, since index membership changes don't
// flow through node.Recorder's lifecycle events.
func (r *Recorder) SetIndexSize(n int) {
	r.indexSize.Store(int64(n))
	r.indexSizeGauge.Set(float64(n))
}

// SetFreshAllocs updates the nodes_fresh_total gauge from an
// Allocator.Fresh() reading; like SetIndexSize, this doesn't flow through
// node.Recorder's lifecycle events on its own, since a Recorder only hears
// about creation, not whether that creation minted fresh memory versus the
// allocator's own pool reuse.
func (r *Recorder) SetFreshAllocs(n int64) {
	r.freshAllocs.Store(n)
	r.freshAllocsGauge.Set(float64(n))
}

// otelMeter mirrors the Prometheus gauges above as OpenTelemetry
// observable gauges, following the teacher's otel_metrics.go convention of
// registering an Int64ObservableCounter/Gauge backed by an atomic read in
// its callback rather than pushing on every increment.
type otelMeter struct {
	r *Recorder
}

// RegisterOTel registers observable gauges against the given meter
// (typically otel.Meter("fusenodecachectl")) mirroring the Prometheus
// nodes_allocated, freelist_length, index_size, and nodes_fresh_total gauges
// on r.
func RegisterOTel(meter metric.Meter, r *Recorder) error {
	om := &otelMeter{r: r}

	if _, err := meter.Int64ObservableGauge(
		"nodes_allocated",
		metric.WithDescription("Current number of nodes allocated from the slab allocator."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(om.r.nodesAllocated.Load())
			return nil
		}),
	); err != nil {
		return err
	}

	if _, err := meter.Int64ObservableGauge(
		"freelist_length",
		metric.WithDescription("Current number of nodes sitting on the process-wide free list."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(om.r.freelistLength.Load())
			return nil
		}),
	); err != nil {
		return err
	}

	if _, err := meter.Int64ObservableGauge(
		"index_size",
		metric.WithDescription("Current number of entries in a mount's path index."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(om.r.indexSize.Load())
			return nil
		}),
	); err != nil {
		return err
	}

	if _, err := meter.Int64ObservableGauge(
		"nodes_fresh_total",
		metric.WithDescription("Monotonic count of nodes minted fresh from the allocator rather than recycled off the free list."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(om.r.freshAllocs.Load())
			return nil
		}),
	); err != nil {
		return err
	}

	return nil
}

// DefaultMeter is the OpenTelemetry meter this module's components report
// through, named after the binary the way the teacher names its meters
// after the fs/gcs/file_cache subsystems.
var DefaultMeter = otel.Meter("fusenodecachectl")
