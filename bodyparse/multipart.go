package bodyparse

import (
	"io"
	"mime/multipart"

	ingest "github.com/stackpress/ingest-sub000"
)

// maxMultipartMemory bounds how much of a multipart body Multipart buffers
// in memory before spilling file parts to temp files.
const maxMultipartMemory = 32 << 20

// Multipart returns an ingest.BodyLoader that reads r as a
// "multipart/form-data" body bounded by boundary, reporting form fields as
// Body/Post and collecting file parts under the "files" Post key, keyed by
// field name, as []*multipart.FileHeader.
func Multipart(r io.Reader, boundary string) ingest.BodyLoader {
	return func(req *ingest.Request) (ingest.Loaded, error) {
		mr := multipart.NewReader(r, boundary)

		form, err := mr.ReadForm(maxMultipartMemory)
		if err != nil {
			return ingest.Loaded{}, err
		}

		post := map[string]interface{}{}
		for name, values := range form.Value {
			if len(values) == 1 {
				post[name] = values[0]
			} else {
				list := make([]interface{}, len(values))
				for i, v := range values {
					list[i] = v
				}
				post[name] = list
			}
		}

		if len(form.File) > 0 {
			post["files"] = form.File
		}

		return ingest.Loaded{Body: post, Post: post}, nil
	}
}
