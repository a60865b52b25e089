package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/weighcheck/weighcheck/internal/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type ruleFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`weighcheck_[a-z_]+`)

func loadRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "weighcheck.yml"))
	require.NoError(t, err)

	var rules ruleFile
	require.NoError(t, yaml.Unmarshal(data, &rules))
	for _, g := range rules.Groups {
		if g.Name == "weighcheck" {
			return g.Rules
		}
	}
	t.Fatal("weighcheck alert group missing")
	return nil
}

func TestWeighcheckAlertRules(t *testing.T) {
	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"HighErrorRate":     {severity: "critical", runbook: "docs/runbook.md#high-error-rate"},
		"DivergenceSpike":   {severity: "warning", runbook: "docs/runbook.md#divergence-spike"},
		"BackupSyncFailing": {severity: "warning", runbook: "docs/runbook.md#backup-sync-failing"},
		"BackupStale":       {severity: "warning", runbook: "docs/runbook.md#backup-sync-failing"},
	}

	rules := loadRules(t)
	require.Len(t, rules, len(expected))

	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook.md"))
	require.NoError(t, err)

	for _, rule := range rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		require.Equal(t, want.severity, rule.Labels["severity"], rule.Alert)
		require.Equal(t, want.runbook, rule.Annotations["runbook"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["description"], rule.Alert)
		require.NotEmpty(t, rule.Expr, rule.Alert)
		require.NotEmpty(t, rule.For, rule.Alert)

		anchor := want.runbook[strings.Index(want.runbook, "#")+1:]
		require.Contains(t, string(runbook), "## "+anchor, "runbook section for %s", rule.Alert)
	}
}

// Every series an alert queries must be exported by the API or worker collectors.
func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())

	metrics.RecordWeighing("error")
	metrics.RecordScan("ok")
	jobs.AddBackupUpload("drive", nil)
	jobs.AddBackupUpload("drive", os.ErrDeadlineExceeded)
	require.NoError(t, jobs.Track("backup:sync").End(nil))
	metrics.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	families, err := metrics.registry.Gather()
	require.NoError(t, err)
	exported := make(map[string]bool, len(families))
	for _, f := range families {
		exported[f.GetName()] = true
	}

	for _, rule := range loadRules(t) {
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			base := name
			for _, suffix := range []string{"_bucket", "_sum", "_count"} {
				base = strings.TrimSuffix(base, suffix)
			}
			require.True(t, exported[base], "%s queries unknown metric %s", rule.Alert, name)
		}
	}
}
