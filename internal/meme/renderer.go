// Package meme talks to a meme-generator service. The service changed its
// HTTP protocol between releases; an adapter for each protocol hides that
// behind Render.
package meme

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/vicentereig/qunalbum/internal/types"
)

var ErrTemplateNotFound = errors.New("meme template not found")

// errNoVersionRoute means the service has no /meme/version route, which only
// the multipart releases lack.
var errNoVersionRoute = errors.New("meme-generator has no version route")

// statusError is a non-2xx answer from the service.
type statusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: http status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// adapter is one protocol generation of the meme-generator service.
type adapter interface {
	Name() string
	Keys(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, key string, req types.RenderRequest) ([]byte, error)
}

type Renderer struct {
	baseURL  string
	template string
	version  string
	http     *http.Client
	log      zerolog.Logger

	mu      sync.Mutex
	adapter adapter
}

// NewRenderer creates a renderer for the template key. version pins the
// service protocol; when empty it is asked from the service on first use.
func NewRenderer(baseURL, template, version string, log zerolog.Logger) *Renderer {
	return &Renderer{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		template: template,
		version:  version,
		http:     &http.Client{},
		log:      log.With().Str("component", "meme").Str("template", template).Logger(),
	}
}

// Render generates the template from req. Every failure is logged and
// reported as false; generation never panics into the caller.
func (r *Renderer) Render(ctx context.Context, req types.RenderRequest) ([]byte, bool) {
	a, err := r.resolveAdapter(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("meme renderer unavailable")
		return nil, false
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		r.log.Error().Err(err).Str("protocol", a.Name()).Msg("failed to list meme templates")
		return nil, false
	}
	if !slices.Contains(keys, r.template) {
		r.log.Error().Err(ErrTemplateNotFound).Int("available", len(keys)).Msg("meme template missing")
		return nil, false
	}

	data, err := r.generate(ctx, a, req)
	if err != nil {
		r.log.Error().Err(err).Str("protocol", a.Name()).Msg("meme generation failed")
		return nil, false
	}
	return data, true
}

type generated struct {
	data []byte
	err  error
}

// generate runs the generation on its own goroutine so a slow renderer only
// holds up this request, and gives up when ctx is done.
func (r *Renderer) generate(ctx context.Context, a adapter, req types.RenderRequest) ([]byte, error) {
	done := make(chan generated, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- generated{err: fmt.Errorf("panic during generation: %v", p)}
			}
		}()
		data, err := a.Generate(ctx, r.template, req)
		done <- generated{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err == nil && len(res.data) == 0 {
			return nil, errors.New("renderer returned an empty image")
		}
		return res.data, res.err
	}
}

// resolveAdapter picks the protocol once. A service without a version route
// is taken to be a multipart release and that choice is cached too. Any other
// probe failure is not cached so the next request asks again.
func (r *Renderer) resolveAdapter(ctx context.Context) (adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapter != nil {
		return r.adapter, nil
	}

	version := r.version
	if version == "" {
		v, err := r.fetchVersion(ctx)
		switch {
		case errors.Is(err, errNoVersionRoute):
			r.log.Info().Msg("no version route, assuming the multipart protocol")
			version = legacyVersion
		case err != nil:
			return nil, err
		default:
			version = v
		}
	}

	a, err := adapterFor(version, r.baseURL, r.http)
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("version", version).Str("protocol", a.Name()).Msg("meme renderer selected")
	r.adapter = a
	return a, nil
}

func (r *Renderer) fetchVersion(ctx context.Context) (string, error) {
	body, err := get(ctx, r.http, r.baseURL+"/meme/version")
	var se *statusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return "", errNoVersionRoute
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meme-generator version: %w", err)
	}
	version := strings.TrimSpace(string(body))
	if gjson.ValidBytes(body) && gjson.ParseBytes(body).Type == gjson.String {
		version = gjson.ParseBytes(body).String()
	}
	if version == "" {
		return "", errors.New("meme-generator reported an empty version")
	}
	return version, nil
}

func adapterFor(version, baseURL string, httpClient *http.Client) (adapter, error) {
	v, err := parseVersion(version)
	if err != nil {
		return nil, err
	}
	if compareVersions(v, legacyCeiling) <= 0 {
		return &legacyAdapter{baseURL: baseURL, http: httpClient}, nil
	}
	return &modernAdapter{baseURL: baseURL, http: httpClient}, nil
}

func get(ctx context.Context, httpClient *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return do(httpClient, req)
}

func do(httpClient *http.Client, req *http.Request) ([]byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &statusError{Method: req.Method, Path: req.URL.Path, Code: resp.StatusCode, Body: msg}
	}
	return body, nil
}

func parseKeys(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid template key list")
	}
	var keys []string
	for _, k := range gjson.ParseBytes(body).Array() {
		keys = append(keys, k.String())
	}
	return keys, nil
}
