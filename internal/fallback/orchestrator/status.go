package orchestrator

// SourceStatus is the read-only diagnostic view of one source.
type SourceStatus struct {
	Available    bool     `json:"available"`
	FailureCount int      `json:"failure_count"`
	Priority     int      `json:"priority"`
	Capabilities []string `json:"capabilities"`
}

// ServiceStatus reports the current state of every configured source
// per data type. Diagnostics only; the data path never consults it.
func (o *Orchestrator) ServiceStatus() map[string]map[string]SourceStatus {
	status := make(map[string]map[string]SourceStatus)
	for _, dataType := range o.registry.DataTypes() {
		perSource := make(map[string]SourceStatus)
		for _, src := range o.registry.Sources(dataType, "") {
			perSource[src.Name] = SourceStatus{
				Available:    !o.breaker.IsOpen(src.Name),
				FailureCount: o.breaker.FailureCount(src.Name),
				Priority:     src.Priority,
				Capabilities: src.Capabilities,
			}
		}
		status[dataType] = perSource
	}
	return status
}
