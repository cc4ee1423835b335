package ingest

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeFileInfo reports a plain file, never a directory -- memFS only ever
// holds leaf descriptors.
type fakeFileInfo struct{ name string }

func (fi fakeFileInfo) Name() string       { return fi.name }
func (fi fakeFileInfo) Size() int64        { return 0 }
func (fi fakeFileInfo) Mode() os.FileMode  { return 0 }
func (fi fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool        { return false }
func (fi fakeFileInfo) Sys() interface{}   { return nil }

// memFS is a minimal in-memory FS for exercising ConfigLoader/PluginLoader
// without touching disk.
type memFS struct {
	files map[string]string
}

func newMemFS(files map[string]string) *memFS {
	return &memFS{files: files}
}

func (f *memFS) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

func (f *memFS) Read(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(data), nil
}

func (f *memFS) Stat(path string) (os.FileInfo, error) {
	if !f.Exists(path) {
		return nil, os.ErrNotExist
	}
	return fakeFileInfo{name: path}, nil
}

func (f *memFS) Realpath(path string) (string, error) { return path, nil }

func (f *memFS) Write(path string, data []byte) error {
	f.files[path] = string(data)
	return nil
}

func TestConfigLoaderResolveTriesExtensionSearchList(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/app/widgets.json": `{"enabled": true}`,
	})
	loader := NewConfigLoader("/app", fs, "")

	resolved, err := loader.Resolve("widgets")
	assert.NoError(t, err)
	assert.Equal(t, "/app/widgets.json", resolved)
}

func TestConfigLoaderResolveFailure(t *testing.T) {
	fs := newMemFS(map[string]string{})
	loader := NewConfigLoader("/app", fs, "")

	_, err := loader.Resolve("missing")
	assert.Error(t, err)

	var failure *ResolveFailure
	assert.ErrorAs(t, err, &failure)
}

func TestConfigLoaderLoadFallsBackToDefault(t *testing.T) {
	fs := newMemFS(map[string]string{})
	loader := NewConfigLoader("/app", fs, "")

	v, err := loader.Load("missing", map[string]interface{}{"fallback": true})
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"fallback": true}, v)
}

func TestConfigLoaderLoadUnwrapsDefaultAndKey(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/app/package.json": `{"default": {"plugins": {"name": "widgets"}}}`,
	})
	loader := NewConfigLoader("/app", fs, "plugins")

	v, err := loader.Load("package.json", nil)
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "widgets"}, v)
}

func TestPluginLoaderBootstrapRecursesThroughNestedLists(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/app/a.json": `["b.json"]`,
		"/app/b.json": `{"name": "deep"}`,
	})

	loader := NewPluginLoader("/app", fs, []string{"a.json"}, "/app")

	var seen []string
	err := loader.Bootstrap(func(name string, plugin interface{}) error {
		seen = append(seen, name)
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"b"}, seen)
}

func TestPluginLoaderBootstrapRunsOnce(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/app/a.json": `{"name": "flat"}`,
	})

	loader := NewPluginLoader("/app", fs, []string{"a.json"}, "/app")

	calls := 0
	run := func() error {
		return loader.Bootstrap(func(name string, plugin interface{}) error {
			calls++
			return nil
		})
	}

	assert.NoError(t, run())
	assert.NoError(t, run())
	assert.Equal(t, 1, calls)
}
