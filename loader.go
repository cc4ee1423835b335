package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/VictoriaMetrics/fastcache"
	"github.com/cespare/xxhash/v2"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// FS is the file-system abstraction a ConfigLoader resolves paths against.
// An osFS is used unless a Server's "fs" config key supplies another one
// (a fake for tests, or a virtual layout for an embedded plugin set).
type FS interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Stat(path string) (os.FileInfo, error)
	Realpath(path string) (string, error)
	Write(path string, data []byte) error
}

// osFS is the default FS, backed directly by the local disk.
type osFS struct{}

func (osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFS) Read(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (osFS) Realpath(path string) (string, error)  { return filepath.Abs(path) }

func (osFS) Write(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// DefaultExtnames is the search list ConfigLoader tries, in order, when
// resolving a pathname that does not exist verbatim.
var DefaultExtnames = []string{
	"plugins.js", "plugins.json", "package.json", "plugins.ts",
	".js", ".json", ".ts",
}

// descriptorCacheBytes bounds the fastcache used to memoize parsed plugin
// descriptors, keyed by the xxhash of their resolved path.
const descriptorCacheBytes = 4 << 20

// ConfigLoader resolves pathnames against a search list of extensions and
// decodes the resulting descriptor, unwrapping a "default" field and then
// an optional key field (package.json-style).
type ConfigLoader struct {
	CWD      string
	FS       FS
	Key      string
	Extnames []string

	cache     *fastcache.Cache
	resolving singleflight.Group
}

// NewConfigLoader returns a pointer to a new ConfigLoader rooted at cwd. A
// zero cwd defaults to the process working directory, a nil fs to the local
// disk, and a zero key to "plugins".
func NewConfigLoader(cwd string, fs FS, key string) *ConfigLoader {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if fs == nil {
		fs = osFS{}
	}
	if key == "" {
		key = "plugins"
	}

	return &ConfigLoader{
		CWD:      cwd,
		FS:       fs,
		Key:      key,
		Extnames: append([]string(nil), DefaultExtnames...),
		cache:    fastcache.New(descriptorCacheBytes),
	}
}

// Resolve tries pathname verbatim, then pathname+extname for every extname
// in l.Extnames (in order), relative to l.CWD when pathname is not already
// absolute. It returns the first path that exists.
func (l *ConfigLoader) Resolve(pathname string) (string, error) {
	if !filepath.IsAbs(pathname) {
		pathname = filepath.Join(l.CWD, pathname)
	}

	candidates := append([]string{pathname}, joinExtnames(pathname, l.Extnames)...)
	for _, candidate := range candidates {
		if l.FS.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", &ResolveFailure{Resource: pathname}
}

func joinExtnames(pathname string, extnames []string) []string {
	dir, base := filepath.Split(pathname)
	out := make([]string, 0, len(extnames))
	for _, ext := range extnames {
		if strings.HasPrefix(ext, ".") {
			out = append(out, filepath.Join(dir, base+ext))
		} else {
			out = append(out, filepath.Join(pathname, ext))
		}
	}
	return out
}

// Load resolves pathname, decodes the descriptor found there, applies
// default- and key-unwrapping, and returns the result. If resolution fails
// and def is non-nil, def is returned instead of a ResolveFailure.
func (l *ConfigLoader) Load(pathname string, def interface{}) (interface{}, error) {
	resolved, err := l.Resolve(pathname)
	if err != nil {
		if def != nil {
			return def, nil
		}
		return nil, err
	}

	cacheKey := strconv.FormatUint(xxhash.Sum64String(resolved), 16)
	if cached, ok := l.cache.HasGet(nil, []byte(cacheKey)); ok {
		var v interface{}
		if err := json.Unmarshal(cached, &v); err == nil {
			return unwrapDescriptor(v, l.Key), nil
		}
	}

	v, err, _ := l.resolving.Do(resolved, func() (interface{}, error) {
		return l.decode(resolved)
	})
	if err != nil {
		return nil, err
	}

	if encoded, mErr := json.Marshal(v); mErr == nil {
		l.cache.Set([]byte(cacheKey), encoded)
	}

	return unwrapDescriptor(v, l.Key), nil
}

// decode reads and parses the resolved descriptor according to its
// extension.
func (l *ConfigLoader) decode(resolved string) (interface{}, error) {
	data, err := l.FS.Read(resolved)
	if err != nil {
		return nil, err
	}

	var v interface{}
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".json", ".js", ".ts":
		err = json.Unmarshal(data, &v)
	case ".toml":
		err = toml.Unmarshal(data, &v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &v)
	default:
		err = json.Unmarshal(data, &v)
	}

	return v, err
}

// unwrapDescriptor performs one level of "default"-unwrapping, then
// key-unwrapping against key, mirroring ConfigLoader's object-shaped
// descriptor handling.
func unwrapDescriptor(v interface{}, key string) interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v
	}

	if def, ok := obj["default"]; ok {
		v = def
		obj, ok = v.(map[string]interface{})
		if !ok {
			return v
		}
	}

	if key != "" {
		if inner, ok := obj[key]; ok {
			return inner
		}
	}

	return v
}

// Decode decodes v (typically the result of Load) into dst using the same
// field-name conventions as the rest of the package's config surface
// (struct tag "mapstructure").
func Decode(v interface{}, dst interface{}) error {
	return mapstructure.Decode(v, dst)
}

// PluginCallback is invoked once per resolved, non-list plugin descriptor
// during Bootstrap, with its canonical name and decoded value.
type PluginCallback func(name string, plugin interface{}) error

// PluginLoader recursively bootstraps a declared plugin list into concrete
// (name, plugin) registrations.
type PluginLoader struct {
	*ConfigLoader

	Plugins []string
	Modules string

	mu            sync.Mutex
	bootstrapped  bool
}

// NewPluginLoader returns a pointer to a new PluginLoader rooted at cwd,
// declaring plugins. modules is the directory prefix stripped when
// computing a plugin's canonical name.
func NewPluginLoader(cwd string, fs FS, plugins []string, modules string) *PluginLoader {
	return &PluginLoader{
		ConfigLoader: NewConfigLoader(cwd, fs, "plugins"),
		Plugins:      plugins,
		Modules:      modules,
	}
}

// Bootstrap walks l.Plugins, invoking callback once for every leaf
// descriptor discovered (recursing into nested plugin lists along the
// way). The first call performs the walk; every subsequent call is a no-op.
func (l *PluginLoader) Bootstrap(callback PluginCallback) error {
	l.mu.Lock()
	if l.bootstrapped {
		l.mu.Unlock()
		return nil
	}
	l.bootstrapped = true
	l.mu.Unlock()

	for _, entry := range l.Plugins {
		if err := l.bootstrapOne(entry, callback); err != nil {
			return err
		}
	}

	return nil
}

func (l *PluginLoader) bootstrapOne(entry string, callback PluginCallback) error {
	resolved, err := l.Resolve(entry)
	if err != nil {
		return err
	}

	loaded, err := l.Load(entry, nil)
	if err != nil {
		return err
	}

	if list, ok := asInterfaceSlice(loaded); ok {
		root := resolved
		if fi, statErr := l.FS.Stat(resolved); statErr == nil && !fi.IsDir() {
			root = filepath.Dir(resolved)
		}

		child := NewPluginLoader(root, l.FS, stringSlice(list), l.Modules)
		return child.Bootstrap(callback)
	}

	name := canonicalPluginName(resolved, l.Modules)
	return callback(name, loaded)
}

// canonicalPluginName strips the modules-root prefix and file extension
// from resolved to produce a stable plugin name.
func canonicalPluginName(resolved, modules string) string {
	name := resolved
	if modules != "" {
		if rel, err := filepath.Rel(modules, resolved); err == nil {
			name = rel
		}
	}

	ext := filepath.Ext(name)
	name = strings.TrimSuffix(name, ext)
	return filepath.ToSlash(name)
}

func asInterfaceSlice(v interface{}) ([]interface{}, bool) {
	slice, ok := v.([]interface{})
	return slice, ok
}

func stringSlice(v []interface{}) []string {
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
