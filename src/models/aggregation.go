package models

// Granularity is the bar spacing detected from a series.
type Granularity string

const (
	GranularityUndefined Granularity = ""
	GranularityIntraday  Granularity = "intraday"
	GranularityDaily     Granularity = "daily"
)

// MVolumeAggregate is the volume summary of one window slice.
type MVolumeAggregate struct {
	TotalVolume   int64       `json:"total_volume"`
	AverageVolume float64     `json:"average_volume"`
	Granularity   Granularity `json:"granularity"`
	Bars          int         `json:"bars"`
}

// IsEmpty reports whether the aggregate was built from no bars.
func (a MVolumeAggregate) IsEmpty() bool {
	return a.Bars == 0
}

// MBaseline maps a symbol to its trailing mean daily volume.
// A missing key means no baseline bars were available.
type MBaseline map[string]float64

// Lookup returns the baseline for a symbol and whether it is present.
func (b MBaseline) Lookup(symbol string) (float64, bool) {
	v, ok := b[symbol]
	return v, ok
}
