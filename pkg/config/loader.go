package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "appcache.toml"

// ConfigDirName is the name of the project-level state and config directory.
const ConfigDirName = ".appcache"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "appcache"

// EnvFileName is the dotenv file read from the project directory.
const EnvFileName = ".env"

// envPrefix prefixes every environment override.
const envPrefix = "APPCACHE_"

// Load loads configuration starting from the current working directory.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/appcache/config.toml)
//  3. Project config found from dir upwards
//  4. dir/.env
//  5. Environment variables (APPCACHE_*)
//
// CLI flags are applied by the caller after LoadFrom returns. A config file
// that exists but does not parse is an error; missing files are skipped.
func LoadFrom(dir string) (*Config, error) {
	cfg := NewConfig()

	// Layer 2: Global user config
	if path := GetGlobalConfigPath(); path != "" {
		globalCfg, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config
	projectCfg, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	cfg.Merge(projectCfg)

	// Layers 4 and 5: .env then process environment
	dotenv, err := readDotenv(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, err
	}
	if err := applyEnvironment(cfg, envLookup(dotenv)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) (*Config, error) {
	current := dir
	for {
		for _, candidate := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(candidate)
			if err != nil {
				return nil, err
			}
			if cfg != nil {
				return cfg, nil
			}
		}

		// Stop at filesystem root or repository root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, nil
}

// isWorkspaceRoot checks if the directory is a workspace root.
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", ConfigDirName, "app.yaml"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. A missing file
// yields (nil, nil).
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// readDotenv reads a .env file without touching the process environment.
func readDotenv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// envLookup prefers the process environment over .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// applyEnvironment applies APPCACHE_* variables to the config.
func applyEnvironment(cfg *Config, getenv func(string) string) error {
	env := func(name string) string { return getenv(envPrefix + name) }

	if v := env("BASE_DIRS"); v != "" {
		cfg.Build.BaseDirs = splitAndTrim(v)
	}
	if v := env("MINIFIER_URL"); v != "" {
		cfg.Build.MinifierURL = v
	}
	if v := env("COMPILATION_LEVEL"); v != "" {
		cfg.Build.CompilationLevel = v
	}
	if v := env("MINIFIER_TIMEOUT"); v != "" {
		cfg.Build.MinifierTimeout = v
	}
	applyBoolEnv(env("MINIFY"), &cfg.Build.Minify)

	if v := env("MANIFEST"); v != "" {
		cfg.Manifest.Path = v
	}
	if v := env("META_FILE"); v != "" {
		cfg.Manifest.MetaFile = v
	}
	if v := env("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_FILE_SIZE %q: %w", envPrefix, v, err)
		}
		cfg.Manifest.MaxFileSize = n
	}
	if v := env("DATA_PATHS"); v != "" {
		cfg.Manifest.DataPaths = splitAndTrim(v)
	}

	if v := env("HASH"); v != "" {
		cfg.Listing.Hash = strings.ToLower(v)
	}

	if v := env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := env("VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sVERBOSITY %q: %w", envPrefix, v, err)
		}
		cfg.Log.Verbosity = &n
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment value to a pointer.
func applyBoolEnv(v string, target **bool) {
	if v == "" {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		t := true
		*target = &t
	case "false", "0", "no":
		f := false
		*target = &f
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
