package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/neurodesk/pmd/pkg/common"
	"github.com/neurodesk/pmd/pkg/netcache"
)

// Loader returns the source of a named template.
type Loader interface {
	Load(name string) (string, error)
}

type ErrTemplateNotFound struct{ Name string }

func (e ErrTemplateNotFound) Error() string { return "template not found: " + e.Name }

// IsNotFound reports whether err means the template does not exist.
func IsNotFound(err error) bool {
	var nf ErrTemplateNotFound
	return errors.As(err, &nf)
}

// withExt appends the template extension to names that carry none.
func withExt(name string) string {
	if path.Ext(name) == "" {
		return name + common.TemplateExt
	}
	return name
}

type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	if s, ok := m[withExt(name)]; ok {
		return s, nil
	}
	return "", ErrTemplateNotFound{name}
}

// FSLoader loads templates from a file system. Names are slash separated
// and relative to the root of FS.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Load(name string) (string, error) {
	p := withExt(path.Clean(strings.TrimPrefix(name, "./")))
	if !fs.ValidPath(p) {
		return "", ErrTemplateNotFound{name}
	}
	b, err := fs.ReadFile(l.FS, p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrTemplateNotFound{name}
	}
	if err != nil {
		return "", fmt.Errorf("reading template %q: %w", name, err)
	}
	return string(b), nil
}

// DirLoader loads templates from a directory on disk.
func DirLoader(dir string) FSLoader {
	return FSLoader{FS: os.DirFS(dir)}
}

// ChainLoader asks each loader in turn. The first loader that has the
// template wins, so override directories go first.
type ChainLoader []Loader

func (c ChainLoader) Load(name string) (string, error) {
	for _, l := range c {
		s, err := l.Load(name)
		if err == nil {
			return s, nil
		}
		if !IsNotFound(err) {
			return "", err
		}
	}
	return "", ErrTemplateNotFound{name}
}

// HTTPLoader loads templates over HTTP through a persistent cache. Names that
// are absolute http(s) URLs are fetched as is; other names are resolved
// against Base.
type HTTPLoader struct {
	Cache *netcache.Cache
	Base  string
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

func (l HTTPLoader) resolve(name string) (string, bool) {
	if isURL(name) {
		return name, true
	}
	if l.Base == "" {
		return "", false
	}
	u, err := url.JoinPath(l.Base, withExt(name))
	if err != nil {
		return "", false
	}
	return u, true
}

func (l HTTPLoader) Load(name string) (string, error) {
	u, ok := l.resolve(name)
	if !ok {
		return "", ErrTemplateNotFound{name}
	}
	b, err := l.Cache.Fetch(context.Background(), u)
	var se *netcache.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusGone) {
		return "", ErrTemplateNotFound{name}
	}
	if err != nil {
		return "", fmt.Errorf("fetching template %q: %w", name, err)
	}
	return string(b), nil
}

var (
	_ Loader = MemoryLoader{}
	_ Loader = FSLoader{}
	_ Loader = ChainLoader{}
	_ Loader = HTTPLoader{}
)
