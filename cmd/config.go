package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc locates ~/.config/cadence. Tests point it at a temp dir.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cadence"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit settings",
	Long: `Inspect and edit the settings cadence reads from config.yaml and
CADENCE_* environment variables.

With no subcommand, prints the effective settings (same as 'config show').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print each setting and where its value came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config.yaml with $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Replace an existing config.yaml")
	configCmd.AddCommand(configInitCmd, configShowCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configKey is one documented setting. Secret values are masked by show.
type configKey struct {
	Key    string
	Secret bool
}

var configKeys = []configKey{
	{Key: "state_dir"},
	{Key: "db_path"},
	{Key: "user.id"},
	{Key: "log.level"},
	{Key: "log.format"},
	{Key: "cache.backend"},
	{Key: "cache.redis_url"},
	{Key: "cache.ttl"},
	{Key: "port"},
	{Key: "anthropic.api_key", Secret: true},
	{Key: "anthropic.model"},
}

// envVar is the environment override for key, matching the replacer
// installed on viper in initConfig.
func (k configKey) envVar() string {
	return "CADENCE_" + strings.ToUpper(strings.ReplaceAll(k.Key, ".", "_"))
}

// starterConfig seeds config.yaml. Values come from the current settings,
// keyed by their dotted names. The API key is never written.
var starterConfig = template.Must(template.New("config").Parse(`# cadence configuration
# 'cadence config show' lists effective values and their sources.

# Where cadence keeps its data (default: ~/.config/cadence)
# state_dir: {{ index . "state_dir" }}

# SQLite database file
# db_path: {{ index . "db_path" }}

# Owner of CLI and MCP writes; HTTP callers send X-User-ID instead.
user:
  id: "{{ index . "user.id" }}"

log:
  level: "{{ index . "log.level" }}"    # debug | info | warn | error
  format: "{{ index . "log.format" }}"  # text | json

# Per-user content list cache
cache:
  backend: "{{ index . "cache.backend" }}"  # memory | redis
  redis_url: "{{ index . "cache.redis_url" }}"
  ttl: "{{ index . "cache.ttl" }}"          # 0 keeps entries until the next write

# 'cadence serve' listen port
port: {{ index . "port" }}

# Enrichment; the key may also come from $ANTHROPIC_API_KEY.
anthropic:
  model: "{{ index . "anthropic.model" }}"
`))

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func renderStarterConfig() ([]byte, error) {
	values := make(map[string]any, len(configKeys))
	for _, k := range configKeys {
		values[k.Key] = viper.Get(k.Key)
	}
	var buf bytes.Buffer
	if err := starterConfig.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return buf.Bytes(), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	_, statErr := os.Stat(cfgPath)
	exists := statErr == nil
	if exists && !configForce {
		return fmt.Errorf("%s already exists; pass --force to replace it", cfgPath)
	}

	body, err := renderStarterConfig()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would write %s", cfgPath)
		fmt.Fprintf(ui.Out, "\n%s", body)
		return nil
	}

	if exists {
		ui.Warning("Replacing %s", cfgPath)
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(cfgPath), err)
	}
	if err := os.WriteFile(cfgPath, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cfgPath, err)
	}

	ui.Success("Wrote %s", cfgPath)
	fmt.Fprintf(ui.Out, "\n%s", body)
	return nil
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	inFile := readConfigFileValues(cfgPath)
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	for _, k := range configKeys {
		var val any = viper.Get(k.Key)
		if k.Secret && viper.GetString(k.Key) != "" {
			val = "********"
		}
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, detectSource(k.Key, k.envVar(), inFile))
	}
	return nil
}

// readConfigFileValues returns the dotted keys set in the YAML file at path.
// A missing or unparsable file yields an empty set.
func readConfigFileValues(path string) map[string]bool {
	keys := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return keys
	}
	var doc map[string]any
	if yaml.Unmarshal(data, &doc) == nil {
		flattenKeys("", doc, keys)
	}
	return keys
}

func flattenKeys(prefix string, m map[string]any, into map[string]bool) {
	for key, val := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := val.(map[string]any); ok {
			flattenKeys(key, child, into)
			continue
		}
		into[key] = true
	}
}

// detectSource reports env over file over default, the same precedence
// viper applies.
func detectSource(key, envVar string, inFile map[string]bool) string {
	switch {
	case hasEnv(envVar):
		return "(env: " + envVar + ")"
	case inFile[key]:
		return "(file)"
	default:
		return "(default)"
	}
}

func hasEnv(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return errors.New("$EDITOR is not set; export EDITOR=vim (or similar) and retry")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s not found; create it with 'cadence config init'", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would run %s %s", editor, cfgPath)
		return nil
	}

	c := exec.Command(editor, cfgPath)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}
