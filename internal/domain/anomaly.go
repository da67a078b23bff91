package domain

// Severity buckets an anomaly for scoring. Each bucket carries a fixed
// scoring weight in the additive risk formula.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Anomaly is a single finding produced by a detector. Type is an open
// identifier string so new anomaly kinds need no schema change.
type Anomaly struct {
	Type     string   `json:"type"`
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// AnomalyCollection groups anomalies into the four severity buckets.
// Created fresh per analysis run; entries are never mutated.
type AnomalyCollection struct {
	Critical   []Anomaly `json:"critical"`
	High       []Anomaly `json:"high"`
	Medium     []Anomaly `json:"medium"`
	Low        []Anomaly `json:"low"`
	TotalCount int       `json:"total_count"`
}

// NewAnomalyCollection returns an empty collection with non-nil buckets
// so JSON output always carries four arrays.
func NewAnomalyCollection() *AnomalyCollection {
	return &AnomalyCollection{
		Critical: []Anomaly{},
		High:     []Anomaly{},
		Medium:   []Anomaly{},
		Low:      []Anomaly{},
	}
}

// Add routes an anomaly to its severity bucket. Unknown severities are
// treated as low rather than dropped.
func (c *AnomalyCollection) Add(a Anomaly) {
	switch a.Severity {
	case SeverityCritical:
		c.Critical = append(c.Critical, a)
	case SeverityHigh:
		c.High = append(c.High, a)
	case SeverityMedium:
		c.Medium = append(c.Medium, a)
	default:
		a.Severity = SeverityLow
		c.Low = append(c.Low, a)
	}
	c.TotalCount++
}

// Merge appends every anomaly from other into the collection.
func (c *AnomalyCollection) Merge(other *AnomalyCollection) {
	if other == nil {
		return
	}
	for _, a := range other.Critical {
		c.Add(a)
	}
	for _, a := range other.High {
		c.Add(a)
	}
	for _, a := range other.Medium {
		c.Add(a)
	}
	for _, a := range other.Low {
		c.Add(a)
	}
}

// HasCriticalOrHigh reports whether the reasoning collaborator should be
// invoked at all.
func (c *AnomalyCollection) HasCriticalOrHigh() bool {
	return len(c.Critical) > 0 || len(c.High) > 0
}

// All returns every anomaly in severity order.
func (c *AnomalyCollection) All() []Anomaly {
	out := make([]Anomaly, 0, c.TotalCount)
	out = append(out, c.Critical...)
	out = append(out, c.High...)
	out = append(out, c.Medium...)
	out = append(out, c.Low...)
	return out
}
