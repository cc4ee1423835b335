// Package bodyparse provides ingest.BodyLoader implementations for the
// request body encodings adapters commonly need to support: URL-encoded
// forms, multipart forms, JSON, MessagePack, and protocol buffers. None of
// these are wired into the core package; an adapter picks the ones its
// transport needs and assigns them to Request.Loader.
package bodyparse
