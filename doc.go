/*
Package ingest implements a pluggable, event-driven HTTP request-processing
framework.

Applications declare routes (method + path pattern) and event listeners; the
framework receives a request from a transport adapter, walks it through a
three-phase lifecycle (request -> route dispatch -> response), invokes zero
or more prioritized listener functions, and serializes an outbound response.

Router

A Router translates an HTTP (method, path) pair into a canonical event name
and dispatches to the listeners registered against it:

	router := ingest.NewRouter()
	router.Get("/users/:id", func(args ingest.Args) (interface{}, error) {
		id := args.Request.Data["id"]
		args.Response.SetJSON(map[string]interface{}{"id": id})
		return nil, nil
	}, 0)

The path may consist of STATIC components, PARAM components (":name"), a
single-segment ANY component ("*"), or a multi-segment ANY component ("**").
Route params are merged into Request.Data under their name (without the
leading ":"); ANY captures are stored positionally in Request.Data["args"].

Listeners and priority

A listener is a Task with an integer priority. Tasks registered against the
same event run in priority order (higher first), and ties break by
registration order. Returning the boolean false from a Task halts the queue
for that event (Status ABORT); any other return value continues.

Plugins

A Server assembles itself from plugin descriptors resolved from disk by a
Loader: an array (a nested plugin list), a function (a configurator that
receives the Server and returns a config value), or a plain object
(registered as config under the plugin's name).
*/
package ingest
