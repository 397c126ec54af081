package event

import "time"

// SyncRunQueue is the queue the notification service consumes run events
// from.
const SyncRunQueue = "crm_sync_run_events"

type SyncRunEventType string

const (
	RunStarted      SyncRunEventType = "run_started"
	RunCompleted    SyncRunEventType = "run_completed"
	RunFailed       SyncRunEventType = "run_failed"
	CustomerSkipped SyncRunEventType = "customer_skipped"
)

// SyncRunEvent is one lifecycle event of a sync run. CustomerOID and Detail
// are only set on per-customer events.
type SyncRunEvent struct {
	RunID              string           `json:"run_id"`
	Type               SyncRunEventType `json:"event_type"`
	CustomerOID        int64            `json:"customer_oid,omitempty"`
	Detail             string           `json:"detail,omitempty"`
	CustomersProcessed int64            `json:"customers_processed,omitempty"`
	CustomersSkipped   int64            `json:"customers_skipped,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
}
