package httpclient

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

const defaultCharset = "utf-8"

// errInvalidUTF8 is the cause of a decode error for malformed UTF-8 bodies.
var errInvalidUTF8 = errors.New("body is not valid UTF-8")

// decodeText converts body to a UTF-8 string according to the charset
// parameter of contentType. A missing or unparsable Content-Type means UTF-8.
func decodeText(body []byte, contentType string) (string, error) {
	label := charsetOf(contentType)

	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", fmt.Errorf("unsupported charset %q: %w", label, err)
	}

	name, _ := htmlindex.Name(enc)
	if name == defaultCharset {
		if !utf8.Valid(body) {
			return "", errInvalidUTF8
		}
		return string(body), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return defaultCharset
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return defaultCharset
	}
	if cs := strings.TrimSpace(params["charset"]); cs != "" {
		return cs
	}
	return defaultCharset
}
