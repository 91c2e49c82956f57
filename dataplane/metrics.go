package dataplane

import (
	"sync/atomic"
)

// Metrics counts what one session showed and scanned. Sessions are driven
// from a single goroutine, the atomics only exist so an exporter can read
// the counters concurrently.
type Metrics struct {
	TxFrames       atomic.Uint64 // frames displayed
	RxFrames       atomic.Uint64 // frames scanned and decoded
	RxUndecodable  atomic.Uint64 // scans the codec could not decode
	TxDataFrames   atomic.Uint64
	RxDataFrames   atomic.Uint64
	Retransfers    atomic.Uint64 // data frames for an index shown before
	DuplicateData  atomic.Uint64 // data frames for an index already held
	TxRequests     atomic.Uint64
	RxRequests     atomic.Uint64
	TxPayloadBytes atomic.Uint64
	RxPayloadBytes atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsSnapshot is a plain copy of Metrics, used for summaries and tests.
type MetricsSnapshot struct {
	TxFrames       uint64
	RxFrames       uint64
	RxUndecodable  uint64
	TxDataFrames   uint64
	RxDataFrames   uint64
	Retransfers    uint64
	DuplicateData  uint64
	TxRequests     uint64
	RxRequests     uint64
	TxPayloadBytes uint64
	RxPayloadBytes uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TxFrames:       m.TxFrames.Load(),
		RxFrames:       m.RxFrames.Load(),
		RxUndecodable:  m.RxUndecodable.Load(),
		TxDataFrames:   m.TxDataFrames.Load(),
		RxDataFrames:   m.RxDataFrames.Load(),
		Retransfers:    m.Retransfers.Load(),
		DuplicateData:  m.DuplicateData.Load(),
		TxRequests:     m.TxRequests.Load(),
		RxRequests:     m.RxRequests.Load(),
		TxPayloadBytes: m.TxPayloadBytes.Load(),
		RxPayloadBytes: m.RxPayloadBytes.Load(),
	}
}
