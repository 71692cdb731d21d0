// Package metrics exposes Prometheus instrumentation for the runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duplex_frames_sent_total",
		Help: "Total frames written to the transport by type",
	}, []string{"type"})

	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duplex_frames_received_total",
		Help: "Total frames delivered to a consumer by type",
	}, []string{"type"})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplex_frames_dropped_total",
		Help: "Total inbound frames dropped due to a full inbox",
	})

	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplex_sessions_opened_total",
		Help: "Total sessions opened by the initiator side",
	})

	SessionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplex_sessions_accepted_total",
		Help: "Total sessions accepted by the responder side",
	})

	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duplex_sessions_closed_total",
		Help: "Session terminations by reason class",
	}, []string{"class"})

	DeadlineExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duplex_deadline_expirations_total",
		Help: "Deadline expirations by kind",
	}, []string{"kind"})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplex_decode_failures_total",
		Help: "Payloads dropped at the codec boundary",
	})
)
