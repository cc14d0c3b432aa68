// Package config provides configuration management for appcache.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/appcache/config.toml)
//  3. Project config (.appcache/config.toml or appcache.toml)
//  4. Project .env file
//  5. Environment variables (APPCACHE_*)
//  6. CLI flags (highest priority)
package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Hash algorithms accepted by [ListingConfig.Hash].
const (
	HashBlake3 = "blake3"
	HashXXHash = "xxhash"
)

// Config is the main configuration struct for appcache.
type Config struct {
	// Build configures the script bundle pipeline.
	Build BuildConfig `toml:"build"`

	// Manifest configures the offline cache manifest.
	Manifest ManifestConfig `toml:"manifest"`

	// Listing configures how the local file listing is computed.
	Listing ListingConfig `toml:"listing"`

	// Log configures default logging (CLI flags win).
	Log LogConfig `toml:"log"`
}

// BuildConfig holds bundle assembly settings.
type BuildConfig struct {
	// BaseDirs are the script directories, relative to the workspace root,
	// that each produce one bundle.
	BaseDirs []string `toml:"base_dirs"`

	// CombinedName is the file name of the concatenated bundle.
	CombinedName string `toml:"combined_name"`

	// MinifiedName is the file name of the minified bundle.
	MinifiedName string `toml:"minified_name"`

	// Minify enables the remote minifier step.
	Minify *bool `toml:"minify"`

	// MinifierURL is the endpoint of the Closure-compatible compile service.
	MinifierURL string `toml:"minifier_url"`

	// CompilationLevel is passed through as compilation_level.
	CompilationLevel string `toml:"compilation_level"`

	// MinifierTimeout bounds the minifier request ("30s", "2m").
	MinifierTimeout string `toml:"minifier_timeout"`
}

// ManifestConfig holds cache manifest settings.
type ManifestConfig struct {
	// Path is the manifest file, relative to the workspace root.
	Path string `toml:"path"`

	// MetaFile is the reserved application metadata file that is never cached.
	MetaFile string `toml:"meta_file"`

	// MaxFileSize is the largest file, in bytes, that may be cached.
	MaxFileSize int64 `toml:"max_file_size"`

	// DataPaths are doublestar globs for application data that is never cached.
	DataPaths []string `toml:"data_paths"`

	// StaticAssets are listed in the bootstrap manifest above the marker.
	StaticAssets []string `toml:"static_assets"`
}

// ListingConfig holds local file listing settings.
type ListingConfig struct {
	// Hash is the content digest algorithm ("blake3" or "xxhash").
	Hash string `toml:"hash"`

	// IgnoreDirs are additional directory name prefixes to skip.
	IgnoreDirs []string `toml:"ignore_dirs"`

	// IgnoreFile is a gitignore-syntax file at the workspace root.
	IgnoreFile string `toml:"ignore_file"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Verbosity *int   `toml:"verbosity"`
	Format    string `toml:"format"`
}

// DefaultMinifierURL is the public Closure Compiler service.
const DefaultMinifierURL = "https://closure-compiler.appspot.com/compile"

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	minify := true
	verbosity := 1
	return &Config{
		Build: BuildConfig{
			BaseDirs:         []string{"js"},
			CombinedName:     "combined.js",
			MinifiedName:     "combined-min.js",
			Minify:           &minify,
			MinifierURL:      DefaultMinifierURL,
			CompilationLevel: "SIMPLE_OPTIMIZATIONS",
			MinifierTimeout:  "60s",
		},
		Manifest: ManifestConfig{
			Path:        "app.manifest",
			MetaFile:    "app.json",
			MaxFileSize: 1024 * 1024,
			DataPaths:   []string{"docs/**"},
			StaticAssets: []string{
				"/lib/beta/js/pf-client.min.js",
				"/lib/beta/css/client.css",
				"/static/images/appbar/green-left.png",
				"/static/images/appbar/green-center.png",
				"/static/images/appbar/green-right.png",
				"/static/images/appbar/down.png",
				"/static/images/appbar/logo.png",
			},
		},
		Listing: ListingConfig{
			Hash:       HashBlake3,
			IgnoreDirs: []string{},
			IgnoreFile: ".appcacheignore",
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    "text",
		},
	}
}

// MinifyEnabled reports whether the minifier step runs.
func (c *Config) MinifyEnabled() bool {
	return c.Build.Minify == nil || *c.Build.Minify
}

// MinifierTimeout returns the parsed minifier timeout, zero when unset.
func (c *Config) MinifierTimeout() time.Duration {
	d, err := time.ParseDuration(c.Build.MinifierTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Manifest.Path == "" {
		errs = append(errs, errors.New("manifest.path must not be empty"))
	} else if path.IsAbs(c.Manifest.Path) || strings.HasPrefix(path.Clean(c.Manifest.Path), "..") {
		errs = append(errs, fmt.Errorf("manifest.path %q must be relative to the workspace", c.Manifest.Path))
	}
	if c.Manifest.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("manifest.max_file_size must be positive, got %d", c.Manifest.MaxFileSize))
	}
	switch c.Listing.Hash {
	case HashBlake3, HashXXHash:
	default:
		errs = append(errs, fmt.Errorf("listing.hash %q is not one of %s, %s", c.Listing.Hash, HashBlake3, HashXXHash))
	}
	if c.Build.CombinedName == "" || c.Build.MinifiedName == "" {
		errs = append(errs, errors.New("build.combined_name and build.minified_name must be set"))
	} else if c.Build.CombinedName == c.Build.MinifiedName {
		errs = append(errs, errors.New("build.combined_name and build.minified_name must differ"))
	}
	if c.Build.MinifierTimeout != "" {
		if _, err := time.ParseDuration(c.Build.MinifierTimeout); err != nil {
			errs = append(errs, fmt.Errorf("build.minifier_timeout: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Build
	if len(other.Build.BaseDirs) > 0 {
		c.Build.BaseDirs = other.Build.BaseDirs
	}
	if other.Build.CombinedName != "" {
		c.Build.CombinedName = other.Build.CombinedName
	}
	if other.Build.MinifiedName != "" {
		c.Build.MinifiedName = other.Build.MinifiedName
	}
	if other.Build.Minify != nil {
		c.Build.Minify = other.Build.Minify
	}
	if other.Build.MinifierURL != "" {
		c.Build.MinifierURL = other.Build.MinifierURL
	}
	if other.Build.CompilationLevel != "" {
		c.Build.CompilationLevel = other.Build.CompilationLevel
	}
	if other.Build.MinifierTimeout != "" {
		c.Build.MinifierTimeout = other.Build.MinifierTimeout
	}

	// Manifest
	if other.Manifest.Path != "" {
		c.Manifest.Path = other.Manifest.Path
	}
	if other.Manifest.MetaFile != "" {
		c.Manifest.MetaFile = other.Manifest.MetaFile
	}
	if other.Manifest.MaxFileSize != 0 {
		c.Manifest.MaxFileSize = other.Manifest.MaxFileSize
	}
	if other.Manifest.DataPaths != nil {
		c.Manifest.DataPaths = other.Manifest.DataPaths
	}
	if other.Manifest.StaticAssets != nil {
		c.Manifest.StaticAssets = other.Manifest.StaticAssets
	}

	// Listing
	if other.Listing.Hash != "" {
		c.Listing.Hash = other.Listing.Hash
	}
	if len(other.Listing.IgnoreDirs) > 0 {
		c.Listing.IgnoreDirs = append(c.Listing.IgnoreDirs, other.Listing.IgnoreDirs...)
	}
	if other.Listing.IgnoreFile != "" {
		c.Listing.IgnoreFile = other.Listing.IgnoreFile
	}

	// Log
	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
