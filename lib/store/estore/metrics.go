package estore

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Lifecycle counters, exported in Prometheus format by metrics.WritePrometheus
var (
	environmentsCreated = metrics.NewCounter(`dstore_environments_created_total`)
	environmentsClosed  = metrics.NewCounter(`dstore_environments_closed_total`)
	directoriesDeleted  = metrics.NewCounter(`dstore_directories_deleted_total`)
	containersOpened    = metrics.NewCounter(`dstore_containers_opened_total`)
	containersClosed    = metrics.NewCounter(`dstore_containers_closed_total`)
)

// operationFailed counts a failed store operation
func operationFailed(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dstore_operation_failures_total{op=%q}`, op)).Inc()
}
