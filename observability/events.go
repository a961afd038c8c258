package observability

import (
	"log/slog"
	"strconv"

	"mpvledger/core/events"
	"mpvledger/core/types"
)

// attributed is implemented by events carrying structured attributes.
type attributed interface {
	Event() *types.Event
}

// LogEmitter writes every emitted event as a structured log line.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(event events.Event) {
	if l.Logger == nil {
		return
	}
	args := []any{slog.String("event", event.EventType())}
	if a, ok := event.(attributed); ok {
		for key, value := range a.Event().Attributes {
			args = append(args, slog.String(key, value))
		}
	}
	l.Logger.Info("ledger event", args...)
}

// MetricsEmitter bumps prometheus counters for ledger activity. It can be
// fanned in alongside other subscribers with events.MultiEmitter.
type MetricsEmitter struct{}

func (MetricsEmitter) Emit(event events.Event) {
	switch e := event.(type) {
	case events.MultisigSubmitted:
		Governance().Submitted.WithLabelValues(e.Wallet, e.Kind).Inc()
	case events.MultisigExecuted:
		Governance().Executed.WithLabelValues(e.Wallet, e.Kind).Inc()
	case events.MultisigExecutionFailed:
		Governance().Failed.WithLabelValues(e.Wallet, e.Kind).Inc()
	case events.AssetStatusChanged:
		Ledger().AssetTransitions.WithLabelValues(e.Status).Inc()
	case events.Transfer:
		Ledger().Transfers.WithLabelValues("moved").Inc()
	case events.DelayedTransferInitiated:
		Ledger().Transfers.WithLabelValues("delayed").Inc()
		Ledger().DelayedTransfers.WithLabelValues("initiated").Inc()
	case events.DelayedTransferExecuted:
		Ledger().DelayedTransfers.WithLabelValues("executed").Inc()
	case events.DelayedTransferCancelled:
		Ledger().DelayedTransfers.WithLabelValues("cancelled").Inc()
	case events.TransferRestricted:
		Ledger().Transfers.WithLabelValues("rejected").Inc()
		Ledger().Restrictions.WithLabelValues(strconv.FormatUint(uint64(e.Code), 10)).Inc()
	}
}
