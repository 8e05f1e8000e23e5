// internal/platform/config/help.go
package config

import (
	"fmt"
	"os"
	"runtime"
)

const helpText = `
Noctua - OSINT Scan Orchestration Engine

USAGE:
  noctua -t <target> [options]
  noctua <command> [options]

COMMANDS:
  scan (default)     Run a scan against a target
  list               List stored scans
  status             Show the status of a scan (--scan <id>)
  stop               Request a running scan to stop (--scan <id>)
  results            Export the events of a scan (--scan <id>)
  correlations       Show correlation results of a scan (--scan <id>)
  logs               Show the persisted log of a scan (--scan <id>)

IMPORTANT:
  Use double dash (--) for long flag names: --target, --modules, --usecase
  Use single dash (-) for short flags: -t, -m, -u

CORE OPTIONS:
  -t, --target string      Seed value: domain, IP, netblock, email,
                           "Full Name", "username", ASN... (required for scan)
      --target-type string Force the seed type instead of auto-detection
  -n, --name string        Scan name (default: the target value)
  -m, --modules string     Comma-separated module names to run
      --types string       Select modules by the event types they produce
  -u, --usecase string     Module use case filter: passive, footprint,
                           investigate or all (default: all)
  -w, --max-threads int    Global concurrency limit (default: 10)
      --module-threads int Concurrent event deliveries per module (default: 3)
  -T, --timeout int        Global timeout in seconds, 0=no timeout (default: 0)

STORAGE OPTIONS:
  -d, --db string          SQLite database path (default: "noctua.db")

CORRELATION OPTIONS:
      --rules string       Correlation rules directory (default: "rules")
      --correlate          Run correlation rules when the scan ends (default: true)

OUTPUT OPTIONS:
  -o, --out string         Output directory (default: "noctua_out")
  -f, --format string      Output format: json or table (default: table)
      --ui string          Interface mode: pretty, plain or silent (default: pretty)

NETWORK OPTIONS:
  -p, --proxy string       HTTP(S) proxy URL for outbound requests (optional)
      --dns string         DNS server to use instead of the system resolver

MODULE OPTIONS:
      --mod module.option=value   Per-module option override (repeatable)

INFO:
  -l, --log-level string   Log level: debug, info, warn, error (default: info)
  -v, --version            Print version information and exit
  -h, --help               Show this help message

EXAMPLES:
  Passive scan of a domain:
    noctua -t example.com -u passive

  Scan an IP with explicit modules:
    noctua -t 192.0.2.1 -m dnsresolve,rdap

  Scan a person (quote the name):
    noctua -t '"John Smith"'

  Stop a running scan:
    noctua stop --scan 6b1f3a...

  Export results as JSON:
    noctua results --scan 6b1f3a... -f json

  Tune a module:
    noctua -t example.com --mod dnsresolve.timeout=10

ENVIRONMENT VARIABLES:
  Most flags can be set via environment variables with NOCTUA_ prefix:

  NOCTUA_TARGET                 Seed value
  NOCTUA_MODULES=a,b,c          Module selection
  NOCTUA_USECASE=passive        Use case filter
  NOCTUA_MAX_THREADS=20         Global concurrency
  NOCTUA_DB_PATH=/path/n.db     Database path
  NOCTUA_RULES_DIR=/path/rules  Correlation rules directory
  NOCTUA_OUTPUT_DIR=/path       Output directory
  NOCTUA_LOG_LEVEL=debug        Log level
  NOCTUA_PROXY_URL=http://...   Proxy URL

  Per-module options (replace DNSRESOLVE/TIMEOUT as needed):
  NOCTUA_MOD_DNSRESOLVE_TIMEOUT=10

  Note: CLI flags override environment variables.

USE CASES:
  passive:      modules that never touch the target's infrastructure
  footprint:    modules that map the target's internet presence
  investigate:  modules aimed at malice and exposure checks
  all:          no filter (default)

OUTPUT:
  Events are persisted to the SQLite database as they are discovered.
  The results command exports them as a table or JSON; correlation
  results are stored alongside and shown in the final summary.
`

// PrintHelp prints the custom help message and exits.
func PrintHelp() {
	fmt.Fprint(os.Stdout, helpText)
	os.Exit(0)
}

// PrintVersion prints version information and exits.
func PrintVersion(version, commit, date string) {
	fmt.Printf("Noctua %s\n", version)
	fmt.Printf("  Commit:  %s\n", commit)
	fmt.Printf("  Built:   %s\n", date)
	fmt.Printf("  Go:      %s\n", getGoVersion())
	os.Exit(0)
}

func getGoVersion() string {
	return runtime.Version()
}
