package health

import "runtime"

// CatalogCheck reports the number of loaded captures. An empty catalog is
// degraded: the server runs but has nothing to draw.
func CatalogCheck(count func() int) CheckFunc {
	return func() Check {
		n := count()
		check := Check{
			Status:  StatusHealthy,
			Message: "Captures loaded",
			Details: map[string]any{"captures": n},
		}
		if n == 0 {
			check.Status = StatusDegraded
			check.Message = "No captures loaded"
		}
		return check
	}
}

// ErrorCheck turns a probe into a check: any error is unhealthy.
func ErrorCheck(probe func() error) CheckFunc {
	return func() Check {
		if err := probe(); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	}
}

// MemoryCheck reports heap usage; above limit bytes it is degraded. A zero
// limit never degrades.
func MemoryCheck(limit uint64) CheckFunc {
	return func() Check {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		check := Check{
			Status:  StatusHealthy,
			Message: "Memory usage normal",
			Details: map[string]any{
				"alloc_bytes": ms.Alloc,
				"sys_bytes":   ms.Sys,
			},
		}
		if limit > 0 && ms.Alloc > limit {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
