package logger

import "strings"

// canonical level names
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// Status and outcome values the dashboards group by. Unknown statuses pass
// through lowercased; unknown outcomes are dropped.
var (
	knownStatus  = set("ok", "fail", "skip", "retry", "cancelled", "ignored")
	knownOutcome = set("ok", "fail", "cancelled", "ignored", "rejected")
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, knownStatus[status]
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, knownOutcome[outcome]
}

// defaultKeyOrder fixes the leading keys of every line; the rest follow sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"session_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"op",
	"outcome",
	"duration_ms",
	"count",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"kind",
	"step",
	"from_step",
	"result",
	"input",
	"command",
	"table",
	"field",
	"name",
	"key",
	"titles",
	"shard",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempts",
	"elapsed_ms",
}
