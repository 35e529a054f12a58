// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package capability

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterKind is the backing the metrics.emit capability advertises.
// Only Prometheus and JSON are actually implemented; Otel is recorded as
// a supported kind in the descriptor's metadata but has no exporter body
// (see DESIGN.md for why).
type ExporterKind string

const (
	ExporterJSON       ExporterKind = "json"
	ExporterPrometheus ExporterKind = "prometheus"
	ExporterOtel       ExporterKind = "otel"
)

func metricsHandle(id string, stage Stage, effects []string) Handle {
	return Handle{
		Descriptor: NewDescriptor(id, stage, effects, CoreProvider()),
		Kind:       KindMetrics,
		Metadata: map[string]any{
			"exporter_kinds": []string{string(ExporterJSON), string(ExporterPrometheus), string(ExporterOtel)},
		},
	}
}

// PrometheusExporter is an audit Observer that turns every capability
// check into Prometheus counter/gauge updates. It backs the metrics.emit
// capability's Prometheus exporter kind.
type PrometheusExporter struct {
	checksTotal *prometheus.CounterVec
	auditGauge  prometheus.Gauge

	mu  sync.Mutex
	reg *Registry
}

// NewPrometheusExporter builds an exporter registered against reg (pass
// prometheus.DefaultRegisterer for the process-wide default, or a scoped
// *prometheus.Registry in tests).
func NewPrometheusExporter(reg prometheus.Registerer) (*PrometheusExporter, error) {
	checksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remlc_capability_checks_total",
		Help: "Total capability verification checks, labelled by capability id and result.",
	}, []string{"capability", "result"})
	auditGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "remlc_capability_audit_log_length",
		Help: "Current length of the capability registry's audit event log.",
	})
	if err := reg.Register(checksTotal); err != nil {
		return nil, fmt.Errorf("capability: register checksTotal metric: %w", err)
	}
	if err := reg.Register(auditGauge); err != nil {
		return nil, fmt.Errorf("capability: register auditGauge metric: %w", err)
	}
	return &PrometheusExporter{checksTotal: checksTotal, auditGauge: auditGauge}, nil
}

// Attach wires the exporter to registry r as an audit observer.
func (e *PrometheusExporter) Attach(r *Registry) {
	e.mu.Lock()
	e.reg = r
	e.mu.Unlock()
	r.AddObserver(e)
}

// ObserveAudit implements Observer.
func (e *PrometheusExporter) ObserveAudit(event AuditEvent) {
	if kind, _ := event.Metadata["event.kind"].(string); kind == "capability.check" {
		result, _ := event.Metadata["capability.result"].(string)
		e.checksTotal.WithLabelValues(event.CapabilityID, result).Inc()
	}
	e.mu.Lock()
	reg := e.reg
	e.mu.Unlock()
	if reg != nil {
		e.auditGauge.Set(float64(reg.audit.Len()))
	}
}

// JSONExporter writes each audit event as a JSON line to w — the backing
// for the metrics.emit capability's JSON exporter kind.
type JSONExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONExporter wraps w.
func NewJSONExporter(w io.Writer) *JSONExporter {
	return &JSONExporter{w: w}
}

// Attach wires the exporter to registry r as an audit observer.
func (e *JSONExporter) Attach(r *Registry) {
	r.AddObserver(e)
}

// ObserveAudit implements Observer.
func (e *JSONExporter) ObserveAudit(event AuditEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	enc := json.NewEncoder(e.w)
	_ = enc.Encode(event)
}
