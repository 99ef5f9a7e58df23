package httpbin

import (
	"crypto/subtle"
	"errors"
	"io"
	"math/rand/v2"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	maxBytes = 100 * 1024

	// encodingSample is served by /encoding/{charset}. Every rune is
	// representable in the common single-byte Latin charsets.
	encodingSample = "Grüße aus Köln, café crème à la française"
)

// handlers serves the echo endpoints.
type handlers struct {
	maxDelay time.Duration
	maxBody  int64
}

// getResponse echoes a request without a body.
type getResponse struct {
	Args    map[string]any    `json:"args"`
	Headers map[string]string `json:"headers"`
	Origin  string            `json:"origin"`
	URL     string            `json:"url"`
}

// bodyResponse echoes a request with a body.
type bodyResponse struct {
	Args    map[string]any    `json:"args"`
	Data    string            `json:"data"`
	Form    map[string]any    `json:"form"`
	Headers map[string]string `json:"headers"`
	JSON    any               `json:"json"`
	Method  string            `json:"method,omitempty"`
	Origin  string            `json:"origin"`
	URL     string            `json:"url"`
}

type authResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user"`
}

// get echoes query arguments, headers, origin and URL.
func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newGetResponse(r))
}

// post echoes the raw body plus its form or JSON interpretation.
func (h *handlers) post(w http.ResponseWriter, r *http.Request) {
	resp, err := h.newBodyResponse(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// anything echoes any method, body included.
func (h *handlers) anything(w http.ResponseWriter, r *http.Request) {
	resp, err := h.newBodyResponse(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	resp.Method = r.Method
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) ip(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"origin": origin(r)})
}

func (h *handlers) headers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]map[string]string{"headers": echoHeaders(r.Header)})
}

// basicAuth answers 200 when the Basic credentials match the path, 401 otherwise.
func (h *handlers) basicAuth(w http.ResponseWriter, r *http.Request) {
	wantUser := chi.URLParam(r, "user")
	wantPass := chi.URLParam(r, "passwd")

	user, pass, ok := r.BasicAuth()
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	if !ok || !userOK || !passOK {
		w.Header().Set("WWW-Authenticate", `Basic realm="Fake Realm"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Authenticated: true, User: user})
}

// status answers with the status code from the path and an empty body.
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		writeError(w, http.StatusBadRequest, "invalid status code")
		return
	}
	w.WriteHeader(code)
}

// delay waits before echoing like /get. The duration is whole seconds
// ("2") or a Go duration ("250ms"), capped at the configured maximum.
func (h *handlers) delay(w http.ResponseWriter, r *http.Request) {
	d, err := parseDelay(chi.URLParam(r, "duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d = min(d, h.maxDelay)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-r.Context().Done():
		// Client gone; nobody is left to answer.
		return
	}

	writeJSON(w, http.StatusOK, newGetResponse(r))
}

// bytes answers n pseudo-random bytes. A "seed" query argument makes the
// output reproducible.
func (h *handlers) bytes(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid byte count")
		return
	}
	n = min(n, maxBytes)

	seed := uint64(time.Now().UnixNano())
	if s := r.URL.Query().Get("seed"); s != "" {
		if seed, err = strconv.ParseUint(s, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid seed")
			return
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rng.UintN(256))
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	_, _ = w.Write(buf)
}

// encoding answers a fixed text encoded in the charset from the path and
// declares it in Content-Type.
func (h *handlers) encoding(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "charset")

	enc, err := htmlindex.Get(label)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown charset")
		return
	}

	body, err := enc.NewEncoder().String(encodingSample)
	if err != nil {
		writeError(w, http.StatusBadRequest, "charset cannot represent the sample text")
		return
	}

	w.Header().Set("Content-Type", mime.FormatMediaType("text/plain", map[string]string{"charset": label}))
	_, _ = io.WriteString(w, body)
}

func newGetResponse(r *http.Request) getResponse {
	return getResponse{
		Args:    echoArgs(r.URL.Query()),
		Headers: echoHeaders(r.Header),
		Origin:  origin(r),
		URL:     fullURL(r),
	}
}

var errBodyTooLarge = errors.New("request body too large")

func (h *handlers) newBodyResponse(r *http.Request) (bodyResponse, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		return bodyResponse{}, err
	}
	if int64(len(data)) > h.maxBody {
		return bodyResponse{}, errBodyTooLarge
	}

	resp := bodyResponse{
		Args:    echoArgs(r.URL.Query()),
		Data:    string(data),
		Form:    map[string]any{},
		Headers: echoHeaders(r.Header),
		Origin:  origin(r),
		URL:     fullURL(r),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if form, err := url.ParseQuery(string(data)); err == nil {
			resp.Form = echoArgs(form)
		}
	case "application/json":
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			resp.JSON = v
		}
	}

	return resp, nil
}

// echoArgs flattens single values to strings and keeps repeated keys as lists.
func echoArgs(values url.Values) map[string]any {
	args := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			args[k] = v[0]
			continue
		}
		args[k] = v
	}
	return args
}

// echoHeaders joins repeated headers with commas. Credentials are masked.
func echoHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ",")
	}
	if _, ok := out["Authorization"]; ok {
		out["Authorization"] = "[redacted]"
	}
	return out
}

func origin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func parseDelay(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs < 0 {
			return 0, errors.New("negative delay")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid delay")
	}
	if d < 0 {
		return 0, errors.New("negative delay")
	}
	return d, nil
}
