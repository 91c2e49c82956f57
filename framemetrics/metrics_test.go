package framemetrics

import (
	"errors"
	"testing"

	"github.com/netsys-lab/optics/dataplane"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := dataplane.NewMetrics()
	if err := Register(reg, "sender", m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	m.TxFrames.Add(7)
	m.Retransfers.Add(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != len(counters) {
		t.Fatalf("gathered %d families, want %d", len(families), len(counters))
	}
	values := make(map[string]float64)
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
	}
	if got := values["optics_sender_tx_frames_total"]; got != 7 {
		t.Errorf("tx frames = %v, want 7", got)
	}
	if got := values["optics_sender_retransfers_total"]; got != 2 {
		t.Errorf("retransfers = %v, want 2", got)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := dataplane.NewMetrics()
	if err := Register(reg, "receiver", m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := Register(reg, "receiver", m)
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		t.Errorf("second registration error = %v, want AlreadyRegisteredError", err)
	}
	if err := Register(reg, "sender", m); err != nil {
		t.Errorf("Register of another role: %v", err)
	}
}

func TestRegisterRollsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	taken := prometheus.NewCounter(prometheus.CounterOpts{Name: "optics_sender_rx_payload_bytes_total", Help: "taken"})
	reg.MustRegister(taken)

	if err := Register(reg, "sender", dataplane.NewMetrics()); err == nil {
		t.Fatal("Register succeeded over an existing counter")
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 1 {
		t.Errorf("%d families left registered, want only the existing one", len(families))
	}
}
