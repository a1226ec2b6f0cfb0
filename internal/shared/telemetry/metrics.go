package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	linkingMeter = otel.Meter("ledgerlink/linking")

	// SessionsStarted counts created linking sessions
	SessionsStarted, _ = linkingMeter.Int64Counter("linking.sessions.started",
		metric.WithDescription("Linking sessions created"),
	)

	// LinksCompleted counts sessions that reached the completion step
	LinksCompleted, _ = linkingMeter.Int64Counter("linking.sessions.completed",
		metric.WithDescription("Linking sessions that reached completion"),
	)

	// HandshakeFailures counts handshake attempts that ended in error
	HandshakeFailures, _ = linkingMeter.Int64Counter("linking.handshake.failures",
		metric.WithDescription("Provider handshakes that ended in error"),
	)
)
