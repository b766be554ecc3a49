package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxDepth    = 2
	defaultStorageName = "storage.yaml"
	// ConfigEnvVar overrides the configuration file search.
	ConfigEnvVar = "GITROUTER_CONFIG"
)

// Settings is the top-level configuration.
type Settings struct {
	Roots                 []string        `yaml:"roots"`
	RepositoryChangeDelay time.Duration   `yaml:"repository_change_delay"`
	FileSystemChangeDelay time.Duration   `yaml:"filesystem_change_delay"`
	VisibilityTTL         time.Duration   `yaml:"visibility_ttl"`
	StoragePath           string          `yaml:"storage_path"`
	Excludes              []string        `yaml:"excludes"`
	MaxDepth              int             `yaml:"max_depth"`
	Subscription          Subscription    `yaml:"subscription"`
	Hosting               []HostingConfig `yaml:"hosting"`
}

// HostingConfig describes the connection to one Git hosting service.
type HostingConfig struct {
	Type    string `yaml:"type"`     // "github", "gitlab", "azuredevops"
	Token   string `yaml:"token"`    // Inline, ${ENV_VAR}, or file path
	BaseURL string `yaml:"base_url"` // Self-hosted instances only
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultSettings returns the settings used when no configuration file exists.
func DefaultSettings() *Settings {
	settings := &Settings{}
	settings.applyDefaults()
	return settings
}

// NewSettings reads and parses a configuration file, expanding environment variables
// and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for i := range settings.Hosting {
		settings.Hosting[i].Token = resolveToken(settings.Hosting[i].Token)
	}
	for i, root := range settings.Roots {
		settings.Roots[i] = os.ExpandEnv(root)
	}

	if validateErr := validate(&settings); validateErr != nil {
		return nil, validateErr
	}

	settings.applyDefaults()
	return &settings, nil
}

// LoadSettings loads the file named by GITROUTER_CONFIG, else the first file found in the
// default locations, else the defaults.
func LoadSettings() (*Settings, error) {
	path := os.Getenv(ConfigEnvVar)
	if path == "" {
		found, err := FindConfigFile()
		if err != nil {
			logger.Debugf("Using default settings: %v", err)
			return DefaultSettings(), nil
		}
		path = found
	}
	logger.Debugf("Using config file: %s", path)
	return NewSettings(path)
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".gitrouter.yaml",
		".gitrouter.yml",
		"gitrouter.yaml",
		"gitrouter.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// HostingToken returns the configured token for a hosting type, falling back to the usual
// environment variables.
func (s *Settings) HostingToken(hostingType string) string {
	for _, h := range s.Hosting {
		if h.Type == hostingType && h.Token != "" {
			return h.Token
		}
	}
	return ResolveTokenFromEnv(hostingType)
}

// HostingBaseURL returns the configured base URL for a hosting type, if any.
func (s *Settings) HostingBaseURL(hostingType string) string {
	for _, h := range s.Hosting {
		if h.Type == hostingType {
			return h.BaseURL
		}
	}
	return ""
}

func (s *Settings) applyDefaults() {
	if s.RepositoryChangeDelay <= 0 {
		s.RepositoryChangeDelay = DefaultRepositoryChangeDelay
	}
	if s.FileSystemChangeDelay <= 0 {
		s.FileSystemChangeDelay = DefaultFileSystemChangeDelay
	}
	if s.VisibilityTTL <= 0 {
		s.VisibilityTTL = DefaultVisibilityTTL
	}
	if s.MaxDepth <= 0 {
		s.MaxDepth = defaultMaxDepth
	}
	if s.StoragePath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil || cacheDir == "" {
			cacheDir = os.TempDir()
		}
		s.StoragePath = filepath.Join(cacheDir, "gitrouter", defaultStorageName)
	}
	if s.Subscription.Plan == "" {
		s.Subscription.Plan = "community"
	}
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// ResolveTokenFromEnv returns the token for a hosting type from its conventional env vars.
func ResolveTokenFromEnv(hostingType string) string {
	switch hostingType {
	case HostingGitHub:
		if t := os.Getenv("GITHUB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GH_TOKEN")
	case HostingAzureDevOps:
		if t := os.Getenv("AZURE_DEVOPS_EXT_PAT"); t != "" {
			return t
		}
		return os.Getenv("SYSTEM_ACCESSTOKEN")
	case HostingGitLab:
		if t := os.Getenv("GITLAB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GL_TOKEN")
	default:
		return ""
	}
}

// validate checks the configured values.
func validate(settings *Settings) error {
	for i, h := range settings.Hosting {
		switch h.Type {
		case HostingGitHub, HostingGitLab, HostingAzureDevOps:
		case "":
			return fmt.Errorf("hosting[%d].type is required", i)
		default:
			return fmt.Errorf("hosting[%d].type %q is not supported", i, h.Type)
		}
	}
	if settings.MaxDepth < 0 {
		return errors.New("max_depth must not be negative")
	}
	return nil
}
