package bodyparse

import (
	"encoding/json"
	"io"

	ingest "github.com/stackpress/ingest-sub000"
)

// JSON returns an ingest.BodyLoader that decodes the first JSON value read
// from r as "application/json". The decoded value is reported as Body; if it decodes
// to an object, that object is also reported as Post.
func JSON(r io.Reader) ingest.BodyLoader {
	return func(req *ingest.Request) (ingest.Loaded, error) {
		var v interface{}
		if err := json.NewDecoder(r).Decode(&v); err != nil && err != io.EOF {
			return ingest.Loaded{}, err
		}

		loaded := ingest.Loaded{Body: v}
		if obj, ok := v.(map[string]interface{}); ok {
			loaded.Post = obj
		}

		return loaded, nil
	}
}
