package instance

import (
	"os"

	"github.com/hrthis/hrthis-backend/pkg/env"
)

const envWorkerID = "HRTHIS_WORKER_ID"

// GetID names this process in lock values and logs: HRTHIS_WORKER_ID, then
// the hostname, then "worker-0".
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker-0"
	}
	return env.String(envWorkerID, host)
}
