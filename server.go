package ingest

import (
	"fmt"
	"os"
	"sync"
)

// Handler is the transport-native entry point Server.Handle delegates to.
// An adapter supplies one; it is responsible for turning rawReq/rawRes into
// a Request/Response pair and driving a RouteLifecycle over them.
type Handler func(server *Server, rawReq, rawRes interface{}) error

// Gateway produces a listening server bound to an adapter, given the
// address passed to Server.Listen. Adapters install one on Server.Gateway
// (it can also be passed through the "gateway" config key); Server.Listen
// calls it.
type Gateway func(server *Server, address string) error

// Server extends Router with configuration, a plugin registry, and the
// transport glue (Handler/Gateway) an adapter wires in.
type Server struct {
	*Router

	CWD     string
	Logger  *Logger
	Handler Handler
	Gateway Gateway

	mu           sync.RWMutex
	config       map[string]interface{}
	plugins      map[string]interface{}
	pluginLoader *PluginLoader
	bootstrapped bool

	addresses []string
}

// NewServer returns a pointer to a new, un-bootstrapped Server. config
// carries the recognized keys (cwd, fs, key, extnames, plugins, modules,
// handler, gateway, cookie); unrecognized keys
// are kept verbatim and surfaced through Config.
func NewServer(config map[string]interface{}) *Server {
	if config == nil {
		config = map[string]interface{}{}
	}

	cwd, _ := config["cwd"].(string)
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	fs, _ := config["fs"].(FS)
	key, _ := config["key"].(string)
	modules, _ := config["modules"].(string)

	var plugins []string
	if raw, ok := config["plugins"].([]string); ok {
		plugins = raw
	} else if raw, ok := config["plugins"].([]interface{}); ok {
		plugins = stringSlice(raw)
	}

	loader := NewPluginLoader(cwd, fs, plugins, modules)
	if key != "" {
		loader.ConfigLoader.Key = key
	}
	if extnames, ok := config["extnames"].([]string); ok {
		loader.ConfigLoader.Extnames = extnames
	}

	s := &Server{
		Router:       NewRouter(),
		CWD:          cwd,
		Logger:       NewLogger("ingest", ""),
		config:       config,
		plugins:      map[string]interface{}{},
		pluginLoader: loader,
	}

	if h, ok := config["handler"].(Handler); ok {
		s.Handler = h
	}
	if g, ok := config["gateway"].(Gateway); ok {
		s.Gateway = g
	}

	return s
}

// CookieOptions returns the CookieOptions decoded from the "cookie" config
// key, or the zero value if none was set.
func (s *Server) CookieOptions() CookieOptions {
	raw, _ := s.Config("cookie")
	return CookieOptionsFrom(raw)
}

// Config returns the value registered under key, and whether it exists.
func (s *Server) Config(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	return v, ok
}

// SetConfig registers value under key.
func (s *Server) SetConfig(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
}

// Plugin returns the value registered under name by Bootstrap, and whether
// it exists.
func (s *Server) Plugin(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.plugins[name]
	return v, ok
}

// Bootstrap walks the server's declared plugin list exactly once. Every
// resolved (name, plugin) pair is registered under name: a function
// plugin is invoked as a configurator (plugin(server) -> config) and its
// return value registered in its place; any other value is registered
// as-is.
func (s *Server) Bootstrap() error {
	return s.pluginLoader.Bootstrap(func(name string, plugin interface{}) error {
		if configurator, ok := plugin.(func(*Server) (interface{}, error)); ok {
			config, err := configurator(s)
			if err != nil {
				return err
			}
			plugin = config
		}

		s.mu.Lock()
		s.plugins[name] = plugin
		s.bootstrapped = true
		s.mu.Unlock()

		return nil
	})
}

// Handle delegates to s.Handler, which is responsible for turning
// rawReq/rawRes into a Request/Response and driving a RouteLifecycle.
func (s *Server) Handle(rawReq, rawRes interface{}) error {
	if s.Handler == nil {
		return fmt.Errorf("ingest: server has no handler configured")
	}
	return s.Handler(s, rawReq, rawRes)
}

// Call synthetically emits event through the full lifecycle without a real
// transport: data becomes the explicit data of a new Request (its Query and
// Post stay empty), the lifecycle runs, and the Response is projected into a
// StatusResponse.
func (s *Server) Call(event string, data map[string]interface{}, response *Response) StatusResponse {
	req := NewRequest(nil, nil, data)
	req.Context = s

	if response == nil {
		response = NewResponse(nil)
	}
	response.Context = s

	args := Args{Request: req, Response: response, Context: s}

	lc := NewRouteLifecycle(s, event, args)
	lc.Run()

	response.Dispatch()

	return StatusResponse{
		Code:    response.Code,
		Status:  response.Status,
		Results: response.Body,
		Error:   response.Error,
		Errors:  response.Errors,
		Total:   response.Total,
		Stack:   response.Stack,
	}
}

// RouteTo is sugar for Call(EventFor(method, path), data, response).
func (s *Server) RouteTo(method, path string, data map[string]interface{}, response *Response) StatusResponse {
	return s.Call(EventFor(method, path), data, response)
}

// Listen calls s.Gateway with address, recording address once it succeeds.
// Adapters use this as the binding point for a real listener.
func (s *Server) Listen(address string) error {
	if s.Gateway == nil {
		return fmt.Errorf("ingest: server has no gateway configured")
	}

	if err := s.Gateway(s, address); err != nil {
		return err
	}

	s.mu.Lock()
	s.addresses = append(s.addresses, address)
	s.mu.Unlock()

	return nil
}

// Addresses returns every address Listen has successfully bound to.
func (s *Server) Addresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.addresses))
	copy(out, s.addresses)
	return out
}
