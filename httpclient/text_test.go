package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
		wantErr     bool
	}{
		{name: "given no content type, then reads utf-8", body: []byte("héllo"), want: "héllo"},
		{name: "given explicit utf-8, then reads utf-8", body: []byte("ok"), contentType: "text/plain; charset=UTF-8", want: "ok"},
		{name: "given latin1 body, then converts", body: []byte("caf\xe9"), contentType: "text/plain; charset=iso-8859-1", want: "café"},
		{name: "given windows-1252 quotes, then converts", body: []byte("\x93hi\x94"), contentType: "text/html; charset=windows-1252", want: "“hi”"},
		{name: "given malformed content type, then falls back to utf-8", body: []byte("ok"), contentType: ";;;", want: "ok"},
		{name: "given empty body, then empty text", body: nil, want: ""},
		{name: "given invalid utf-8, then fails", body: []byte{0xff, 0xfe, 0xfd}, wantErr: true},
		{name: "given unknown charset, then fails", body: []byte("ok"), contentType: "text/plain; charset=klingon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeText(tt.body, tt.contentType)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse_Text(t *testing.T) {
	t.Parallel()

	t.Run("given invalid body, then returns decode error", func(t *testing.T) {
		resp := &Response{body: []byte{0xff}, url: "http://example.com", attempt: 2}

		_, err := resp.Text()

		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
		assert.ErrorIs(t, err, errInvalidUTF8)

		var reqErr *Error
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, 2, reqErr.Attempt)
		assert.Empty(t, reqErr.Reason)
	})

	t.Run("given json body, then unmarshals", func(t *testing.T) {
		resp := &Response{body: []byte(`{"origin":"127.0.0.1"}`), StatusCode: 200}

		var v struct {
			Origin string `json:"origin"`
		}
		require.NoError(t, resp.JSON(&v))
		assert.Equal(t, "127.0.0.1", v.Origin)
		assert.True(t, resp.IsSuccess())
		assert.False(t, resp.IsError())
	})

	t.Run("given broken json, then decode error", func(t *testing.T) {
		resp := &Response{body: []byte(`{`)}

		assert.True(t, IsDecodeError(resp.JSON(&struct{}{})))
	})
}
