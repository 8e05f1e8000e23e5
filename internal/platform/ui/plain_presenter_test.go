package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"noctua/internal/testutil"
)

var (
	_ Presenter = (*PlainPresenter)(nil)
	_ Presenter = (*PTermPresenter)(nil)
	_ Presenter = (*NoopPresenter)(nil)
)

func capturedPlainPresenter(format LogFormat) (*PlainPresenter, *bytes.Buffer) {
	p := NewPlainPresenter(format)
	buf := &bytes.Buffer{}
	p.out = buf
	return p, buf
}

func TestPlainPresenter_TextFormat(t *testing.T) {
	p, buf := capturedPlainPresenter(LogFormatText)

	p.Start(ScanInfo{
		ScanID:     "abc123",
		ScanName:   "example sweep",
		Target:     "example.com",
		TargetType: "INTERNET_NAME",
		Modules:    []string{"dnsresolve", "crtsh"},
		MaxThreads: 3,
	})
	p.ModuleStarted("dnsresolve")
	p.EventDiscovered("INTERNET_NAME", "crtsh", 7)
	p.ModuleFailed("crtsh", "connection refused")
	p.Finish(ScanStats{
		Status:           "FINISHED",
		TotalDuration:    1500 * time.Millisecond,
		TotalEvents:      7,
		EventsByType:     map[string]int{"INTERNET_NAME": 7},
		ModulesSucceeded: 1,
		ModulesFailed:    1,
	})

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	testutil.AssertEqual(t, len(lines), 6, "one line per notification")

	testutil.AssertContains(t, out, "scan_started", "start line present")
	testutil.AssertContains(t, out, "target=example.com", "target field present")
	testutil.AssertContains(t, out, "modules=dnsresolve,crtsh", "modules joined")
	testutil.AssertContains(t, out, "module_started", "module start line present")
	testutil.AssertContains(t, out, "event_discovered", "event line present")
	testutil.AssertContains(t, out, "type=INTERNET_NAME", "event type field present")
	testutil.AssertContains(t, out, "total=7", "running total present")
	testutil.AssertContains(t, out, "module_failed", "module failure line present")
	testutil.AssertContains(t, out, `reason="connection refused"`, "reason quoted because of spaces")
	testutil.AssertContains(t, out, "scan_completed", "completion line present")
	testutil.AssertContains(t, out, "status=FINISHED", "terminal status present")
	testutil.AssertContains(t, out, "duration=1.5s", "duration rendered as Duration")
	testutil.AssertContains(t, out, "events_by_type", "breakdown line present")
}

func TestPlainPresenter_FinishWithCorrelations(t *testing.T) {
	p, buf := capturedPlainPresenter(LogFormatText)

	p.Finish(ScanStats{
		Status:             "FINISHED",
		Correlations:       3,
		CorrelationsByRisk: map[string]int{"HIGH": 1, "MEDIUM": 2},
	})

	out := buf.String()
	testutil.AssertContains(t, out, "correlations=3", "total findings present")
	testutil.AssertContains(t, out, "correlations_by_risk", "breakdown line present")
	testutil.AssertContains(t, out, "HIGH", "risk levels present")
}

func TestPlainPresenter_JSONFormat(t *testing.T) {
	p, buf := capturedPlainPresenter(LogFormatJSON)

	p.EventDiscovered("IP_ADDRESS", "dnsresolve", 3)

	line := strings.TrimSpace(buf.String())

	var entry map[string]interface{}
	testutil.AssertNoError(t, testutil.UnmarshalJSON([]byte(line), &entry), "line is valid JSON")
	testutil.AssertEqual(t, entry["message"], "event_discovered", "message field")
	testutil.AssertEqual(t, entry["level"], "INFO", "level field")

	data, ok := entry["data"].(map[string]interface{})
	testutil.AssertTrue(t, ok, "data object present")
	testutil.AssertEqual(t, data["type"], "IP_ADDRESS", "event type in data")
	testutil.AssertEqual(t, data["module"], "dnsresolve", "module in data")
	testutil.AssertEqual(t, data["total"], float64(3), "total in data")
}

func TestPlainPresenter_MessageLevels(t *testing.T) {
	p, buf := capturedPlainPresenter(LogFormatText)

	p.Info("storage ready")
	p.Warning("abort requested")
	p.Error("setup failed")

	out := buf.String()
	testutil.AssertContains(t, out, "INFO  storage ready", "info level")
	testutil.AssertContains(t, out, "WARN  abort requested", "warn level")
	testutil.AssertContains(t, out, "ERROR setup failed", "error level")
}

func TestForMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{"pretty", "pretty", "*ui.PTermPresenter"},
		{"plain", "plain", "*ui.PlainPresenter"},
		{"silent", "silent", "*ui.NoopPresenter"},
		{"unknown falls back to plain", "fancy", "*ui.PlainPresenter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ForMode(tt.mode)
			testutil.AssertNotNil(t, p, "presenter built")

			switch tt.want {
			case "*ui.PTermPresenter":
				_, ok := p.(*PTermPresenter)
				testutil.AssertTrue(t, ok, "expected pterm presenter")
			case "*ui.PlainPresenter":
				_, ok := p.(*PlainPresenter)
				testutil.AssertTrue(t, ok, "expected plain presenter")
			case "*ui.NoopPresenter":
				_, ok := p.(*NoopPresenter)
				testutil.AssertTrue(t, ok, "expected noop presenter")
			}
		})
	}
}

func TestSortedTypeCounts(t *testing.T) {
	counts := map[string]int{
		"EMAILADDR":     2,
		"INTERNET_NAME": 9,
		"IP_ADDRESS":    2,
		"DOMAIN_NAME":   5,
	}

	got := sortedTypeCounts(counts)

	testutil.AssertLen(t, got, 4, "all types present")
	testutil.AssertEqual(t, got[0].Type, "INTERNET_NAME", "highest count first")
	testutil.AssertEqual(t, got[1].Type, "DOMAIN_NAME", "then by count")
	testutil.AssertEqual(t, got[2].Type, "EMAILADDR", "ties break alphabetically")
	testutil.AssertEqual(t, got[3].Type, "IP_ADDRESS", "ties break alphabetically")
}

func TestRiskBreakdown(t *testing.T) {
	byRisk := map[string]int{"MEDIUM": 2, "HIGH": 1, "INFO": 3}
	testutil.AssertEqual(t, riskBreakdown(byRisk), "1 HIGH, 2 MEDIUM, 3 INFO", "severity-descending order")
	testutil.AssertEqual(t, riskBreakdown(map[string]int{"LOW": 1}), "1 LOW", "single level")
	testutil.AssertEqual(t, riskBreakdown(nil), "", "no findings, no text")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{"milliseconds", 350 * time.Millisecond, "350ms"},
		{"seconds", 2500 * time.Millisecond, "2.5s"},
		{"minutes", 95 * time.Second, "1m35s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, formatDuration(tt.input), tt.want, "formatted duration")
		})
	}
}
