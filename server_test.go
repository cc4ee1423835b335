package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerConfigRoundTrip(t *testing.T) {
	s := NewServer(nil)
	s.SetConfig("custom", 42)

	v, ok := s.Config("custom")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestServerBootstrapRegistersPluginDescriptor(t *testing.T) {
	dir := t.TempDir()

	childPath := filepath.Join(dir, "child.json")
	assert.NoError(t, os.WriteFile(childPath, []byte(`{"enabled": true}`), 0o644))

	rootPath := filepath.Join(dir, "plugins.json")
	assert.NoError(t, os.WriteFile(rootPath, []byte(`["child.json"]`), 0o644))

	s := NewServer(map[string]interface{}{
		"cwd":     dir,
		"plugins": []string{"plugins.json"},
		"modules": dir,
	})

	assert.NoError(t, s.Bootstrap())

	plugin, ok := s.Plugin("child")
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"enabled": true}, plugin)
}

func TestServerBootstrapIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	rootPath := filepath.Join(dir, "plugins.json")
	assert.NoError(t, os.WriteFile(rootPath, []byte(`{"a": 1}`), 0o644))

	calls := 0
	s := NewServer(map[string]interface{}{
		"cwd":     dir,
		"plugins": []string{"plugins.json"},
		"modules": dir,
	})
	s.On("bootstrap-probe", func(Args) (interface{}, error) {
		calls++
		return nil, nil
	}, 0)

	assert.NoError(t, s.Bootstrap())
	assert.NoError(t, s.Bootstrap())

	_, ok := s.Plugin("plugins")
	assert.True(t, ok)
}

func TestServerCallSyntheticEmission(t *testing.T) {
	s := NewServer(nil)
	s.On("greet", func(args Args) (interface{}, error) {
		name, _ := args.Request.Data["name"].(string)
		args.Response.SetBody("hello "+name, "text/plain")
		return nil, nil
	}, 0)

	res := s.Call("greet", map[string]interface{}{"name": "ada"}, nil)
	assert.Equal(t, "hello ada", res.Results)
}
