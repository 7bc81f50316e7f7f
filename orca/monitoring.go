// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamerPacketsRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daq2lh5_streamer_packets_read",
		Help: "Count of packets loaded from the input stream.",
	})

	streamerBytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daq2lh5_streamer_bytes_read",
		Help: "Count of bytes read from the input stream.",
	})

	streamerPacketsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daq2lh5_streamer_packets_skipped",
		Help: "Count of packets skipped without decoding.",
	}, []string{"reason"})

	streamerDecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daq2lh5_streamer_decode_errors",
		Help: "Count of packets whose decode failed.",
	})

	streamerBuffersFilled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daq2lh5_streamer_buffers_filled",
		Help: "Count of decode calls after which a raw buffer was full.",
	})
)

// Skip reasons for the packets_skipped counter.
const (
	skipReasonUnknownID      = "unknown_id"
	skipReasonMissingDecoder = "missing_decoder"
	skipReasonNoBuffer       = "no_buffer"
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		streamerPacketsRead,
		streamerBytesRead,
		streamerPacketsSkipped,
		streamerDecodeErrors,
		streamerBuffersFilled,
	)
}
