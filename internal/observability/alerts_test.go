package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

func repoFile(t *testing.T, parts ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{"..", ".."}, parts...)...))
	require.NoError(t, err)
	return data
}

func TestBackofficeAlertRules(t *testing.T) {
	var file alertFile
	require.NoError(t, yaml.Unmarshal(repoFile(t, "deploy", "prometheus", "alerts", "backoffice.yml"), &file))
	require.Len(t, file.Groups, 1)
	require.Equal(t, "backoffice", file.Groups[0].Name)

	runbook := string(repoFile(t, "docs", "runbook.md"))

	expected := map[string]struct {
		severity string
		metric   string
	}{
		"HighErrorRate":          {"critical", "backoffice_http_requests_total"},
		"HighLatency":            {"warning", "backoffice_http_request_duration_seconds_bucket"},
		"VendorSyncPartial":      {"warning", "backoffice_vendor_setting_sync_total"},
		"PropagationJobFailing":  {"critical", "backoffice_jobs_failures_total"},
		"VendorSettingsDrifting": {"warning", "backoffice_vendor_settings_drifted"},
	}

	rules := file.Groups[0].Rules
	require.Len(t, rules, len(expected))
	for _, rule := range rules {
		want, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		require.Equal(t, want.severity, rule.Labels["severity"], rule.Alert)
		require.Contains(t, rule.Expr, want.metric, rule.Alert)
		require.NotEmpty(t, rule.For, rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["description"], rule.Alert)

		link := rule.Annotations["runbook"]
		require.True(t, strings.HasPrefix(link, "docs/runbook.md#"), rule.Alert)
		anchor := strings.TrimPrefix(link, "docs/runbook.md#")
		require.Contains(t, runbook, "<a id=\""+anchor+"\"></a>", "runbook section for %s", rule.Alert)
	}
}
