package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/placeholder"
)

func TestGenerateConfigLoads(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		provider string
	}{
		{"backend with token", "secret", config.ProviderBackend},
		{"backend without token", "", config.ProviderBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvAPIToken, "")
			path := filepath.Join(t.TempDir(), "config.yaml")
			content := generateConfig("https://app.example.com/api", tt.token, tt.provider)
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v\n%s", err, content)
			}
			if cfg.Backend.BaseURL != "https://app.example.com/api" {
				t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
			}
			if cfg.Backend.Token != tt.token {
				t.Errorf("Token = %q, want %q", cfg.Backend.Token, tt.token)
			}
		})
	}
}

func TestGenerateConfigGemini(t *testing.T) {
	t.Setenv(config.EnvAIAPIKey, "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(generateConfig("http://localhost:8000", "", config.ProviderGemini)), 0600)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Provider != config.ProviderGemini || cfg.AI.APIKey != "from-env" {
		t.Errorf("AI = %+v", cfg.AI)
	}
}

func TestConfigPathPrecedence(t *testing.T) {
	defer func() { cfgFile = "" }()

	t.Setenv(EnvConfig, "/from/env.yaml")
	cfgFile = "/from/flag.yaml"
	if got, _ := configPath(); got != "/from/flag.yaml" {
		t.Errorf("configPath() = %q, want flag value", got)
	}

	cfgFile = ""
	if got, _ := configPath(); got != "/from/env.yaml" {
		t.Errorf("configPath() = %q, want env value", got)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                  "(not set)",
		"short":             "****",
		"abcdefghijklmnopq": "abcd****",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLeadIDs(t *testing.T) {
	ids, err := parseLeadIDs([]string{"3", "5,7", " 9 "})
	if err != nil {
		t.Fatalf("parseLeadIDs() error = %v", err)
	}
	want := []int64{3, 5, 7, 9}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	for _, bad := range []string{"x", "0", "-2"} {
		if _, err := parseLeadIDs([]string{bad}); err == nil {
			t.Errorf("parseLeadIDs(%q) should fail", bad)
		}
	}
}

func TestParseStepID(t *testing.T) {
	if id, err := parseStepID("2"); err != nil || id != 2 {
		t.Errorf("parseStepID(2) = %d, %v", id, err)
	}
	if _, err := parseStepID("0"); err == nil {
		t.Error("parseStepID(0) should fail")
	}
}

func TestStageBanner(t *testing.T) {
	banner := stageBanner(campaign.StageSteps)
	for _, label := range []string{"1 Info", "2 Steps", "3 Leads"} {
		if !strings.Contains(banner, label) {
			t.Errorf("banner %q missing %q", banner, label)
		}
	}
}

func TestPrintDraft(t *testing.T) {
	b := campaign.NewBuilder()
	b.SetInfo(campaign.Info{Name: "Demo"})
	st, _ := b.AddStep()
	b.UpdateStep(st.ID, func(s *campaign.StepDraft) {
		s.Subject = "Follow up"
		s.Body = "Hi " + placeholder.Token("lead", "first_name")
	})

	var buf bytes.Buffer
	printDraft(&buf, "0123456789abcdef", b.Snapshot(), false)
	out := buf.String()

	for _, want := range []string{"Demo", "01234567", "sent immediately", "wait 1 day (24h)", "variables: lead.first_name", "step 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("printDraft() output missing %q:\n%s", want, out)
		}
	}
}
