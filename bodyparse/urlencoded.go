package bodyparse

import (
	"io"
	"net/url"

	ingest "github.com/stackpress/ingest-sub000"
)

// URLEncoded returns an ingest.BodyLoader that reads r fully and parses it
// as "application/x-www-form-urlencoded", reporting the decoded fields as
// both Body and Post.
func URLEncoded(r io.Reader) ingest.BodyLoader {
	return func(req *ingest.Request) (ingest.Loaded, error) {
		raw, err := io.ReadAll(r)
		if err != nil {
			return ingest.Loaded{}, err
		}

		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ingest.Loaded{}, err
		}

		post := map[string]interface{}{}
		for name, vals := range values {
			if len(vals) == 1 {
				post[name] = vals[0]
			} else {
				list := make([]interface{}, len(vals))
				for i, v := range vals {
					list[i] = v
				}
				post[name] = list
			}
		}

		return ingest.Loaded{Body: post, Post: post}, nil
	}
}
