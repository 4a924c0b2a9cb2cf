package app

import (
	"os"
	"strings"
	"sync/atomic"

	"pqsig/x/pqc/types"
)

const envPQCDebug = EnvPrefix + "_PQC_DEBUG"

var pqcDebugFlag atomic.Bool

func init() {
	if os.Getenv(envPQCDebug) == "1" {
		pqcDebugFlag.Store(true)
	}
}

func pqcDebugEnabled() bool {
	return pqcDebugFlag.Load()
}

func setPQCDebug(enabled bool) (restore func()) {
	prev := pqcDebugFlag.Swap(enabled)
	return func() { pqcDebugFlag.Store(prev) }
}

// withPQCDebug rewrites a log level so the pqc module always logs at debug
// while every other module keeps its configured level.
func withPQCDebug(levelStr string) string {
	levelStr = strings.TrimSpace(levelStr)
	debugEntry := types.ModuleName + ":debug"
	if !strings.Contains(levelStr, ":") {
		return debugEntry + ",*:" + levelStr
	}

	entries := []string{debugEntry}
	for _, entry := range strings.Split(levelStr, ",") {
		if strings.HasPrefix(strings.TrimSpace(entry), types.ModuleName+":") {
			continue
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, ",")
}
