package bodyparse

import (
	"io"

	"google.golang.org/protobuf/proto"

	ingest "github.com/stackpress/ingest-sub000"
)

// Protobuf returns an ingest.BodyLoader that reads r fully and unmarshals
// it as "application/protobuf" into a fresh message produced by newMessage,
// reporting the decoded message as Body.
func Protobuf(r io.Reader, newMessage func() proto.Message) ingest.BodyLoader {
	return func(req *ingest.Request) (ingest.Loaded, error) {
		raw, err := io.ReadAll(r)
		if err != nil {
			return ingest.Loaded{}, err
		}

		msg := newMessage()
		if len(raw) > 0 {
			if err := proto.Unmarshal(raw, msg); err != nil {
				return ingest.Loaded{}, err
			}
		}

		return ingest.Loaded{Body: msg}, nil
	}
}
