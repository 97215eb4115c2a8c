package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecordAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordAction("RedeemTicketAction", "success")
	r.RecordAction("RedeemTicketAction", "success")
	r.RecordAction("RedeemTicketAction", "timeout")

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "mixsession_chainactions_actions_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Metric, 2)
}

func TestRegistryRecordFrameDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordFrameDiscarded("capacity")

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "mixsession_reassembly_frames_discarded_total" {
			found = true
		}
	}
	require.True(t, found)
}

func TestRegistryRecordFrameReassembledAndSegmentEmitted(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordFrameReassembled()
	r.RecordSegmentEmitted()
	r.RecordSegmentEmitted()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range metricFamilies {
		for _, m := range mf.Metric {
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}
	require.Equal(t, 1.0, values["mixsession_reassembly_frames_reassembled_total"])
	require.Equal(t, 2.0, values["mixsession_segmenter_segments_emitted_total"])
}
