package config

import (
	"os"
	"path/filepath"

	"github.com/parleyhq/parley/errors"
	"gopkg.in/yaml.v3"
)

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

// AssistantProfile is a named assistant definition. Instructions and
// description are optional; Toolset and Model default to the global ones
// when empty.
type AssistantProfile struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Instructions string `yaml:"instructions"`
	Toolset      string `yaml:"toolset"`
	Model        string `yaml:"model"`
}

type Config struct {
	Provider             string             `yaml:"provider"`
	Model                string             `yaml:"model"`
	Assistants           []AssistantProfile `yaml:"assistants"`
	Toolsets             []Toolset          `yaml:"toolsets"`
	AdditionalMCPServers []MCPServer        `yaml:"additional_mcp_servers"`
	AllowedCommands      []string           `yaml:"allowed_commands"`
	FilesystemAccess     FilesystemAccess   `yaml:"filesystem_access"`
}

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func Load() (*Config, error) {
	cfg := &Config{}

	// The .parley directory is always hidden from the filesystem tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".parley", ".parley/**")

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".parley", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".parley", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Note: Unmarshal will overwrite fields present in the YAML. This provides
	// a simple merge where project-level config replaces user-level.
	// A more sophisticated merge could be implemented if needed.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. An empty name means "default". When no
// default toolset is configured, one holding the built-in tools is
// synthesized so the module runs without any configuration file.
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for _, ts := range c.Toolsets {
		if ts.Name == name {
			return &ts, nil
		}
	}
	if name == "default" {
		return &Toolset{
			Name:  "default",
			Tools: []string{"read_file", "write_file", "run_command"},
		}, nil
	}
	// Fallback to default if a specific toolset was requested but not found
	return c.GetToolset("default")
}

// GetAssistant finds an assistant profile by name. An empty name means
// "default"; a missing default profile is synthesized empty. Asking for any
// other missing name is an error, since running a different assistant than
// the one requested would be surprising.
func (c *Config) GetAssistant(name string) (*AssistantProfile, error) {
	if name == "" {
		name = "default"
	}
	for _, p := range c.Assistants {
		if p.Name == name {
			return &p, nil
		}
	}
	if name == "default" {
		return &AssistantProfile{Name: "default"}, nil
	}
	return nil, errors.New("assistant '%s' not found in configuration", name)
}
