package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foxzi/leadflow/internal/config"
)

var (
	initBackendURL string
	initToken      string
	initProvider   string
	initOutput     string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a leadflow configuration file",
	Long: `Interactive wizard to create a leadflow configuration file.

Examples:
  # Interactive mode - prompts for missing values
  leadflow init

  # Non-interactive
  leadflow init --backend https://app.example.com/api --token $TOKEN -o leadflow.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initBackendURL, "backend", "", "Backend API base URL")
	initCmd.Flags().StringVar(&initToken, "token", "", "Backend API token (or set "+config.EnvAPIToken+" later)")
	initCmd.Flags().StringVar(&initProvider, "ai-provider", config.ProviderBackend, "AI provider: backend, gemini")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Output configuration file path (default: <user config dir>/leadflow/config.yaml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("leadflow Configuration Wizard")
	fmt.Println("=============================")
	fmt.Println()

	if initBackendURL == "" {
		initBackendURL = prompt(reader, "Backend API URL (e.g., https://app.example.com/api)", "")
		if initBackendURL == "" {
			return fmt.Errorf("backend URL is required")
		}
	}

	if initToken == "" {
		initToken = prompt(reader, "API token (leave empty to use "+config.EnvAPIToken+")", "")
	}

	if initOutput == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("cannot determine config directory, use -o: %w", err)
		}
		initOutput = filepath.Join(dir, "leadflow", "config.yaml")
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	content := generateConfig(initBackendURL, initToken, initProvider)

	var parsed config.Config
	if err := yaml.Unmarshal([]byte(content), &parsed); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(initOutput), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(initOutput, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  leadflow config validate")
	fmt.Println("  leadflow draft new --name \"My campaign\"")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func generateConfig(baseURL, token, provider string) string {
	tokenLine := `  # token: ""  # or set ` + config.EnvAPIToken
	if token != "" {
		tokenLine = fmt.Sprintf("  token: %q", token)
	}

	aiSection := fmt.Sprintf("ai:\n  provider: %s", provider)
	if provider == config.ProviderGemini {
		aiSection += "\n  # api_key: \"\"  # or set " + config.EnvAIAPIKey + "\n  model: gemini-2.5-flash"
	}

	return fmt.Sprintf(`# leadflow configuration

backend:
  base_url: %q
%s
  timeout: 30s

storage:
  # path: ""  # default: <user config dir>/leadflow/drafts.db

preview:
  listen_addr: "127.0.0.1:8090"
  # allowed_ips: ["127.0.0.1", "10.0.0.0/8"]

metrics:
  enabled: false
  listen_addr: ":9090"
  path: "/metrics"

%s

logging:
  level: info
  format: text
`, baseURL, tokenLine, aiSection)
}
