package ch

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo returns a ClientInfo describing this process and role
// role examples: "prep", "api"
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	host, _ := os.Hostname()

	type kv = struct{ Name, Version string }

	products := []kv{
		{Name: "nhanes", Version: clean(tag)},
		{Name: "role", Version: clean(role)},
		{Name: "go", Version: clean(runtime.Version())},
		{Name: "commit", Version: clean(vcsShortSHA())},
		{Name: "host", Version: clean(host)},
	}
	return clickhouse.ClientInfo{Products: products}
}

func vcsShortSHA() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

func clean(s string) string { return strings.TrimSpace(s) }
