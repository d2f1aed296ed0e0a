package meme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/vicentereig/qunalbum/internal/types"
)

// legacyAdapter speaks the multipart protocol: images, texts and args go in
// one form and the rendered image comes straight back.
type legacyAdapter struct {
	baseURL string
	http    *http.Client
}

func (a *legacyAdapter) Name() string { return "legacy" }

func (a *legacyAdapter) Keys(ctx context.Context) ([]string, error) {
	body, err := get(ctx, a.http, a.baseURL+"/memes/keys")
	if err != nil {
		return nil, err
	}
	return parseKeys(body)
}

func (a *legacyAdapter) Generate(ctx context.Context, key string, req types.RenderRequest) ([]byte, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	for i, img := range req.Images {
		part, err := form.CreateFormFile("images", fmt.Sprintf("image%d", i))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(img); err != nil {
			return nil, err
		}
	}
	for _, text := range req.Texts {
		if err := form.WriteField("texts", text); err != nil {
			return nil, err
		}
	}
	args := req.Args
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}
	if err := form.WriteField("args", string(argsJSON)); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/memes/"+url.PathEscape(key)+"/", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	return do(a.http, httpReq)
}
