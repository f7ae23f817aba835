package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// serviceName tags every structured line so aggregated logs stay filterable.
const serviceName = "accounts-api"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one JSON log line. The service tag is stamped on every
// entry unless the caller already set one.
func LogRequest(entry map[string]any) {
	Logger().Println(encodeEntry(entry))
}

func encodeEntry(entry map[string]any) string {
	if _, ok := entry["service"]; !ok {
		entry["service"] = serviceName
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return `{"service":"` + serviceName + `","level":"error","msg":"log marshal failed"}`
	}
	return string(data)
}
