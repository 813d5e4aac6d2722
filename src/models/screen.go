package models

// MScreenFilters are optional post-filters applied to computed records.
type MScreenFilters struct {
	MinAbsPriceChangePct *float64 `json:"min_abs_price_change_pct,omitempty"`
	MinVolumeSpikePct    *float64 `json:"min_volume_spike_pct,omitempty"`
}

// MScreenRequest is the input of one screening run.
type MScreenRequest struct {
	Symbols []string       `json:"symbols"`
	Window  MTimeWindow    `json:"window"`
	Filters MScreenFilters `json:"filters"`
}

// MBatchGap records a batch whose provider call failed or timed out.
type MBatchGap struct {
	Batch   int      `json:"batch"`
	Symbols []string `json:"symbols"`
	Reason  string   `json:"reason"`
}

// MProcessingMetrics summarizes one run.
type MProcessingMetrics struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Requested      int     `json:"requested"`
	Produced       int     `json:"produced"`
	Batches        int     `json:"batches"`
	BaselineHits   int     `json:"baseline_hits"`
}

// MScreenResult is owned by the caller of a run; the engine keeps no copy.
type MScreenResult struct {
	RunID             string             `json:"run_id"`
	Plan              MWindowPlan        `json:"plan"`
	Window            MTimeWindow        `json:"window"`
	Records           []MMetricRecord    `json:"records"`
	Gaps              []MBatchGap        `json:"gaps,omitempty"`
	Skipped           []string           `json:"skipped,omitempty"`
	ProcessingMetrics MProcessingMetrics `json:"processing_metrics"`
	GeneratedAt       int64              `json:"generated_at"`
}
