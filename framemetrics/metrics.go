// Package framemetrics exports the counters of a transfer session to
// Prometheus.
package framemetrics

import (
	"fmt"

	"github.com/netsys-lab/optics/dataplane"
	"github.com/prometheus/client_golang/prometheus"
)

const NAMESPACE = "optics"

type counter struct {
	name  string
	help  string
	value func(m *dataplane.Metrics) uint64
}

var counters = []counter{
	{"tx_frames_total", "Frames displayed.", func(m *dataplane.Metrics) uint64 { return m.TxFrames.Load() }},
	{"rx_frames_total", "Frames scanned and decoded.", func(m *dataplane.Metrics) uint64 { return m.RxFrames.Load() }},
	{"rx_undecodable_total", "Scans that held no readable frame.", func(m *dataplane.Metrics) uint64 { return m.RxUndecodable.Load() }},
	{"tx_data_frames_total", "Data frames displayed.", func(m *dataplane.Metrics) uint64 { return m.TxDataFrames.Load() }},
	{"rx_data_frames_total", "Data frames scanned.", func(m *dataplane.Metrics) uint64 { return m.RxDataFrames.Load() }},
	{"retransfers_total", "Data frames displayed for a packet shown before.", func(m *dataplane.Metrics) uint64 { return m.Retransfers.Load() }},
	{"duplicate_data_total", "Data frames scanned for a packet already held.", func(m *dataplane.Metrics) uint64 { return m.DuplicateData.Load() }},
	{"tx_requests_total", "Requests for missing packets displayed.", func(m *dataplane.Metrics) uint64 { return m.TxRequests.Load() }},
	{"rx_requests_total", "Requests for missing packets scanned.", func(m *dataplane.Metrics) uint64 { return m.RxRequests.Load() }},
	{"tx_payload_bytes_total", "Payload bytes displayed.", func(m *dataplane.Metrics) uint64 { return m.TxPayloadBytes.Load() }},
	{"rx_payload_bytes_total", "New payload bytes scanned.", func(m *dataplane.Metrics) uint64 { return m.RxPayloadBytes.Load() }},
}

// Register exposes m as optics_<role>_* counters on reg. The values are read
// on every scrape. On error nothing stays registered.
func Register(reg prometheus.Registerer, role string, m *dataplane.Metrics) error {
	registered := make([]prometheus.Collector, 0, len(counters))
	for _, c := range counters {
		value := c.value
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: role,
			Name:      c.name,
			Help:      c.help,
		}, func() float64 {
			return float64(value(m))
		})
		if err := reg.Register(collector); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return fmt.Errorf("framemetrics: register %s_%s_%s: %w", NAMESPACE, role, c.name, err)
		}
		registered = append(registered, collector)
	}
	return nil
}
