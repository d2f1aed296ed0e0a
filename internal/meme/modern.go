package meme

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	_ "golang.org/x/image/webp"

	"github.com/vicentereig/qunalbum/internal/types"
)

// modernAdapter speaks the image-id protocol: every input image is uploaded
// first, the meme is generated from image ids, and the result is fetched by
// id.
type modernAdapter struct {
	baseURL string
	http    *http.Client
}

type imageRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type generateRequest struct {
	Images  []imageRef     `json:"images"`
	Texts   []string       `json:"texts"`
	Options map[string]any `json:"options"`
}

func (a *modernAdapter) Name() string { return "modern" }

func (a *modernAdapter) Keys(ctx context.Context) ([]string, error) {
	body, err := get(ctx, a.http, a.baseURL+"/meme/keys")
	if err != nil {
		return nil, err
	}
	return parseKeys(body)
}

func (a *modernAdapter) Generate(ctx context.Context, key string, req types.RenderRequest) ([]byte, error) {
	// Reject undecodable input before anything is sent to the service.
	for i, img := range req.Images {
		if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
			return nil, fmt.Errorf("malformed image %d: %w", i, err)
		}
	}

	name, _ := req.Args["name"].(string)
	refs := make([]imageRef, 0, len(req.Images))
	for _, img := range req.Images {
		id, err := a.uploadImage(ctx, img)
		if err != nil {
			return nil, err
		}
		refs = append(refs, imageRef{Name: name, ID: id})
	}

	texts := req.Texts
	if texts == nil {
		texts = []string{}
	}
	options := req.Args
	if options == nil {
		options = map[string]any{}
	}
	resultID, err := a.postForImageID(ctx, "/memes/"+url.PathEscape(key), generateRequest{
		Images:  refs,
		Texts:   texts,
		Options: options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate meme: %w", err)
	}

	return get(ctx, a.http, a.baseURL+"/image/"+url.PathEscape(resultID))
}

func (a *modernAdapter) uploadImage(ctx context.Context, img []byte) (string, error) {
	id, err := a.postForImageID(ctx, "/image/upload", map[string]string{
		"type": "data",
		"data": base64.StdEncoding.EncodeToString(img),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return id, nil
}

func (a *modernAdapter) postForImageID(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := do(a.http, req)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(resp, "image_id").String()
	if id == "" {
		return "", errors.New("response has no image_id")
	}
	return id, nil
}
