package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/neurodesk/pmd/pkg/common"
	"github.com/neurodesk/pmd/pkg/library"
	"github.com/neurodesk/pmd/pkg/netcache"
	"github.com/neurodesk/pmd/pkg/pmd"
	v "github.com/neurodesk/pmd/pkg/validator"
	"gopkg.in/yaml.v3"
)

type pmdConfig struct {
	TemplateDirs     []string           `yaml:"template_dirs"`
	RemoteBases      []string           `yaml:"remote_bases"`
	CacheDir         string             `yaml:"cache_dir,omitempty"`
	RequiredMetadata []string           `yaml:"required_metadata"`
	BoolFormat       *common.BoolFormat `yaml:"bool_format,omitempty"`
	MaxIncludeDepth  int                `yaml:"max_include_depth,omitempty"`
}

func (c *pmdConfig) loadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

func (c *pmdConfig) Validate() error {
	var schemes []string
	for _, b := range c.RemoteBases {
		u, err := url.Parse(b)
		if err != nil {
			return fmt.Errorf("remote_bases: %w", err)
		}
		schemes = append(schemes, u.Scheme)
	}
	return v.All(
		v.Map(c.TemplateDirs, v.NotEmpty, "template_dirs"),
		v.NoDuplicates(c.TemplateDirs, "template_dirs"),
		v.SliceHasElements(schemes, []string{"http", "https"}, "remote_bases scheme"),
		v.Map(c.RequiredMetadata, v.HasNoDirectives, "required_metadata"),
		v.NoDuplicates(c.RequiredMetadata, "required_metadata"),
		v.NonNegative(c.MaxIncludeDepth, "max_include_depth"),
	)
}

// loadPmdConfig reads the configuration file. A missing file is only an
// error when --config was given explicitly.
func loadPmdConfig() (pmdConfig, error) {
	var cfg pmdConfig
	err := cfg.loadConfig(rootConfigPath)
	if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		slog.Debug("no config file, using defaults", "path", rootConfigPath)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", rootConfigPath, err)
	}
	slog.Debug("loaded config", "path", rootConfigPath)
	return cfg, nil
}

func (c *pmdConfig) cacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pmd")
	}
	return filepath.Join(os.TempDir(), "pmd-cache")
}

// loader searches extraDirs, then the configured template directories, then
// the remote bases. Absolute URLs are always fetched.
func (c *pmdConfig) loader(extraDirs ...string) library.Loader {
	var chain library.ChainLoader
	for _, d := range extraDirs {
		chain = append(chain, library.DirLoader(d))
	}
	for _, d := range c.TemplateDirs {
		chain = append(chain, library.DirLoader(d))
	}
	cache := netcache.New(c.cacheDir())
	cache.Logger = slog.Default()
	for _, b := range c.RemoteBases {
		chain = append(chain, library.HTTPLoader{Cache: cache, Base: b})
	}
	chain = append(chain, library.HTTPLoader{Cache: cache})
	return chain
}

func (c *pmdConfig) library(extraDirs ...string) *library.Library {
	return &library.Library{
		Loader:   c.loader(extraDirs...),
		MaxDepth: c.MaxIncludeDepth,
		Logger:   slog.Default(),
	}
}

func (c *pmdConfig) rendererOptions() []pmd.RendererOption {
	if c.BoolFormat == nil {
		return nil
	}
	return []pmd.RendererOption{pmd.WithBoolFormat(c.BoolFormat.True, c.BoolFormat.False)}
}

// template is a template resolved from the command line.
type template struct {
	name string
	dir  string // directory of a template read from disk
	src  string
}

// resolveTemplate reads arg from disk when it names an existing file and
// otherwise loads it from the template library.
func resolveTemplate(cfg pmdConfig, arg string) (template, error) {
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		b, err := os.ReadFile(arg)
		if err != nil {
			return template{}, err
		}
		return template{name: filepath.Base(arg), dir: filepath.Dir(arg), src: string(b)}, nil
	}
	src, err := cfg.loader().Load(arg)
	if err != nil {
		return template{}, err
	}
	return template{name: arg, src: src}, nil
}

// library returns the library used to expand t's includes; includes are
// looked up next to t first.
func (t template) library(cfg pmdConfig) *library.Library {
	if t.dir == "" {
		return cfg.library()
	}
	return cfg.library(t.dir)
}
