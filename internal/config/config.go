package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	stdstrings "strings"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"github.com/charmbracelet/x/exp/ordered"
	"gopkg.in/yaml.v3"

	"github.com/sortedstartup/ztr/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

const (
	appDir = "ztr"

	minToolTimeout = time.Second
	maxToolTimeout = 30 * time.Minute
)

// Model represents the LLM model used in the API call.
type Model struct {
	Name           string
	API            string
	Aliases        []string `yaml:"aliases"`
	Fallback       string   `yaml:"fallback"`
	ThinkingBudget int      `yaml:"thinking-budget,omitempty"`
}

// API represents an API endpoint and its models.
type API struct {
	Name      string
	APIKey    string           `yaml:"api-key"`
	APIKeyEnv string           `yaml:"api-key-env"`
	APIKeyCmd string           `yaml:"api-key-cmd"`
	BaseURL   string           `yaml:"base-url"`
	Models    map[string]Model `yaml:"models"`
	User      string           `yaml:"user"`
}

// APIs is a type alias to allow custom YAML decoding.
type APIs []API

// UnmarshalYAML implements sorted API YAML decoding.
func (apis *APIs) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		var api API
		if err := node.Content[i+1].Decode(&api); err != nil {
			return fmt.Errorf("error decoding YAML file: %s", err)
		}
		api.Name = node.Content[i].Value
		*apis = append(*apis, api)
	}
	return nil
}

// Container describes the development container tools exec into.
type Container struct {
	Name   string `yaml:"name" env:"NAME"`
	Docker string `yaml:"docker" env:"DOCKER"`
	Shell  string `yaml:"shell" env:"SHELL"`
}

// Timeouts bounds every external process a tool starts.
type Timeouts struct {
	ContainerCheck time.Duration `yaml:"container-check" env:"CONTAINER_CHECK"`
	ContainerExec  time.Duration `yaml:"container-exec" env:"CONTAINER_EXEC"`
	Clone          time.Duration `yaml:"clone" env:"CLONE"`
	Git            time.Duration `yaml:"git" env:"GIT"`
	Generate       time.Duration `yaml:"generate" env:"GENERATE"`
	Build          time.Duration `yaml:"build" env:"BUILD"`
	Template       time.Duration `yaml:"template" env:"TEMPLATE"`
	HTTP           time.Duration `yaml:"http" env:"HTTP"`
}

// Agent is a user-defined agent. Fields left empty fall back to the built-in
// agent of the same name, if any.
type Agent struct {
	Description  string            `yaml:"description"`
	API          string            `yaml:"api"`
	Model        string            `yaml:"model"`
	Instructions []string          `yaml:"instructions"`
	Tools        []string          `yaml:"tools"`
	MCPServers   []string          `yaml:"mcp-servers"`
	Task         string            `yaml:"task"`
	TaskTemplate string            `yaml:"task-template"`
	Workspace    string            `yaml:"workspace"`
	Container    *bool             `yaml:"container"`
	Vars         map[string]string `yaml:"vars"`
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	API             string           `yaml:"default-api" env:"API"`
	Model           string           `yaml:"default-model" env:"MODEL"`
	APIs            APIs             `yaml:"apis"`
	MaxRetries      int              `yaml:"max-retries" env:"MAX_RETRIES"`
	MaxSteps        int              `yaml:"max-steps" env:"MAX_STEPS"`
	MaxTokens       int64            `yaml:"max-tokens" env:"MAX_TOKENS"`
	Temperature     float64          `yaml:"temp" env:"TEMP"`
	HTTPProxy       string           `yaml:"http-proxy" env:"HTTP_PROXY"`
	User            string           `yaml:"user" env:"USER"`
	Raw             bool             `yaml:"raw" env:"RAW"`
	Quiet           bool             `yaml:"quiet" env:"QUIET"`
	WordWrap        int              `yaml:"word-wrap" env:"WORD_WRAP"`
	Theme           string           `yaml:"theme" env:"THEME"`
	LogLevel        string           `yaml:"log-level" env:"LOG_LEVEL"`
	CachePath       string           `yaml:"cache-path" env:"CACHE_PATH"`
	NoCache         bool             `yaml:"no-cache" env:"NO_CACHE"`
	Workspace       string           `yaml:"workspace" env:"WORKSPACE"`
	StarterTemplate string           `yaml:"starter-template" env:"STARTER_TEMPLATE"`
	TemplateRunner  string           `yaml:"template-runner" env:"TEMPLATE_RUNNER"`
	GitHubToken     string           `yaml:"github-token" env:"GITHUB_TOKEN"`
	GitHubBaseURL   string           `yaml:"github-base-url" env:"GITHUB_BASE_URL"`
	Container       Container        `yaml:"container" envPrefix:"CONTAINER_"`
	Timeouts        Timeouts         `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	Agents          map[string]Agent `yaml:"agents"`

	MCPServers map[string]MCPServerConfig `yaml:"mcp-servers"`
	MCPDisable []string                   `yaml:"mcp-disable" env:"MCP_DISABLE"`
	MCPTimeout time.Duration              `yaml:"mcp-timeout" env:"MCP_TIMEOUT"`

	MCPNoInheritEnv bool `yaml:"mcp-no-inherit-env" env:"MCP_NO_INHERIT_ENV"`
}

// Runtime holds CLI/runtime-only options that should not be loaded from the
// settings file.
type Runtime struct {
	SettingsPath string
	Vars         map[string]string
	NoTUI        bool
}

// Config is the application configuration (settings + runtime-only options).
//
// Settings fields are promoted for ergonomic access, but runtime fields are
// explicitly excluded from YAML/env parsing.
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// MCPServerConfig holds configuration for an MCP server.
type MCPServerConfig struct {
	Type    string   `yaml:"type"`
	Command string   `yaml:"command"`
	Env     []string `yaml:"env"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// SettingsDir returns the directory holding the settings file.
func SettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Error{Err: err, Reason: "Could not determine home directory."}
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Ensure loads settings from disk and environment and applies defaults.
//
// It also creates the default settings file if it does not exist.
func Ensure() (Config, error) {
	dir, err := SettingsDir()
	if err != nil {
		return Config{}, err
	}
	return Load(filepath.Join(dir, appDir+".yml"))
}

// Load reads the settings file at path, creating it from the template when
// missing, then overlays ZTR_* environment variables and fills defaults.
func Load(sp string) (Config, error) {
	var c Config
	c.SettingsPath = sp

	dir := filepath.Dir(sp)
	if dirErr := os.MkdirAll(dir, 0o700); dirErr != nil {
		return c, errs.Error{Err: dirErr, Reason: "Could not create settings directory."}
	}

	if dirErr := WriteConfigFile(sp); dirErr != nil {
		return c, dirErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := env.ParseWithOptions(&c, env.Options{Prefix: "ZTR_"}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings file."}
	}

	if err := MergeAgentsFromDir(&c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not load agents from agents directory."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(dir, "runs")
	}
	if err := os.MkdirAll(c.CachePath, 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create cache directory."}
	}

	ApplyDefaults(&c)
	return c, nil
}

// ApplyDefaults fills every unset setting from Default and clamps tool
// timeouts into a sane range.
func ApplyDefaults(c *Config) {
	def := Default()
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = def.MaxSteps
	}
	if c.WordWrap == 0 {
		c.WordWrap = def.WordWrap
	}
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.MCPTimeout == 0 {
		c.MCPTimeout = def.MCPTimeout
	}
	if c.Workspace == "" {
		c.Workspace = def.Workspace
	}
	if c.StarterTemplate == "" {
		c.StarterTemplate = def.StarterTemplate
	}
	if c.TemplateRunner == "" {
		c.TemplateRunner = def.TemplateRunner
	}
	if c.Container.Name == "" {
		c.Container.Name = def.Container.Name
	}
	if c.Container.Docker == "" {
		c.Container.Docker = def.Container.Docker
	}
	if c.Container.Shell == "" {
		c.Container.Shell = def.Container.Shell
	}

	t, d := &c.Timeouts, def.Timeouts
	for _, p := range []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&t.ContainerCheck, d.ContainerCheck},
		{&t.ContainerExec, d.ContainerExec},
		{&t.Clone, d.Clone},
		{&t.Git, d.Git},
		{&t.Generate, d.Generate},
		{&t.Build, d.Build},
		{&t.Template, d.Template},
		{&t.HTTP, d.HTTP},
	} {
		if *p.v == 0 {
			*p.v = p.def
		}
		*p.v = ordered.Clamp(*p.v, minToolTimeout, maxToolTimeout)
	}
}

// MergeAgentsFromDir merges agent definitions from ~/.config/ztr/agents into
// cfg. Markdown files are instructions with optional agent fields in their
// frontmatter; YAML files are decoded as full agent definitions. Agents declared in the settings file win.
func MergeAgentsFromDir(cfg *Config) error {
	agentsDir := filepath.Join(filepath.Dir(cfg.SettingsPath), "agents")
	agents, err := readAgentsFromDir(agentsDir)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		return nil
	}
	if cfg.Agents == nil {
		cfg.Agents = map[string]Agent{}
	}
	for name, agent := range agents {
		if _, exists := cfg.Agents[name]; exists {
			continue
		}
		cfg.Agents[name] = agent
	}
	return nil
}

func readAgentsFromDir(dir string) (map[string]Agent, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read agents directory %q: %w", dir, err)
	}

	agents := map[string]Agent{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		ext := stdstrings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".yml" && ext != ".yaml" {
			return nil
		}

		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return fmt.Errorf("resolve agent path %q: %w", path, relErr)
		}

		name := stdstrings.TrimSuffix(filepath.ToSlash(relPath), filepath.Ext(relPath))
		if name == "" {
			return nil
		}

		agent, agentErr := agentFromFile(path)
		if agentErr != nil {
			return fmt.Errorf("agent file %q: %w", relPath, agentErr)
		}
		agents[name] = agent
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read agents directory %q: %w", dir, err)
	}

	return agents, nil
}

func agentFromFile(path string) (Agent, error) {
	if isMarkdown(path) {
		return markdownAgent(path)
	}

	bts, err := os.ReadFile(path)
	if err != nil {
		return Agent{}, fmt.Errorf("read agent file %q: %w", path, err)
	}

	var agent Agent
	if err := yaml.Unmarshal(bts, &agent); err != nil {
		return Agent{}, fmt.Errorf("must be a YAML agent definition: %w", err)
	}
	return agent, nil
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			API:             "openai",
			Model:           "gpt-5-mini",
			MaxRetries:      3,
			MaxSteps:        50,
			WordWrap:        80,
			Theme:           "charm",
			LogLevel:        "info",
			Workspace:       filepath.Join("data", "outputs"),
			StarterTemplate: filepath.Join("data", "starter-template"),
			TemplateRunner:  "template-runner",
			Container: Container{
				Name:   "work-dev-1",
				Docker: "docker",
				Shell:  "bash",
			},
			Timeouts: Timeouts{
				ContainerCheck: 10 * time.Second,
				ContainerExec:  60 * time.Second,
				Clone:          120 * time.Second,
				Git:            30 * time.Second,
				Generate:       60 * time.Second,
				Build:          120 * time.Second,
				Template:       60 * time.Second,
				HTTP:           30 * time.Second,
			},
			MCPTimeout: 15 * time.Second,
		},
	}
}
