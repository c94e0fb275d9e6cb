package model

// SignalSource identifies what triggered a reconciliation.
type SignalSource string

const (
	SourceWebhook SignalSource = "webhook"
	SourceReturn  SignalSource = "return"
	SourcePoll    SignalSource = "poll"
	SourceSweep   SignalSource = "sweep"
	SourceManual  SignalSource = "manual"
)

// Outcome is the result of reconciling one payment reference.
type Outcome string

const (
	OutcomeMaterialized     Outcome = "materialized"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeProcessing       Outcome = "processing"
	OutcomeFailed           Outcome = "failed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeExpired          Outcome = "expired"
	OutcomeShortfall        Outcome = "shortfall"
)

// ReconcileResult reports what a reconciliation did. Order is set when an
// order exists for the reference after the call.
type ReconcileResult struct {
	Ref           string  `json:"ref"`
	Outcome       Outcome `json:"status"`
	GatewayStatus string  `json:"gatewayStatus,omitempty"`
	Order         *Order  `json:"order,omitempty"`
}

// SweepReport summarises one pass over expired pending orders.
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Recovered int `json:"recovered"`
	Discarded int `json:"discarded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
