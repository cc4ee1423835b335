package bodyparse

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	ingest "github.com/stackpress/ingest-sub000"
)

// Msgpack returns an ingest.BodyLoader that reads r fully and decodes it as
// "application/msgpack". The decoded value is reported as Body; if it
// decodes to an object, that object is also reported as Post.
func Msgpack(r io.Reader) ingest.BodyLoader {
	return func(req *ingest.Request) (ingest.Loaded, error) {
		raw, err := io.ReadAll(r)
		if err != nil {
			return ingest.Loaded{}, err
		}

		var v interface{}
		if len(raw) > 0 {
			if err := msgpack.Unmarshal(raw, &v); err != nil {
				return ingest.Loaded{}, err
			}
		}

		loaded := ingest.Loaded{Body: v}
		if obj, ok := v.(map[string]interface{}); ok {
			loaded.Post = obj
		}

		return loaded, nil
	}
}
