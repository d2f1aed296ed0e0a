package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const base64Scheme = "base64://"

// Loader turns an image source into bytes. A source is a local file path,
// an http(s) URL or a base64:// payload.
type Loader struct {
	http *http.Client
	// downgradeHTTPS rewrites https:// to http:// before fetching; QQ's media
	// CDN serves images with certificates that often fail verification.
	downgradeHTTPS bool
}

func NewLoader(httpClient *http.Client, downgradeHTTPS bool) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Loader{http: httpClient, downgradeHTTPS: downgradeHTTPS}
}

func (l *Loader) Load(ctx context.Context, src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("empty image source")
	case isFile(src):
		return os.ReadFile(src)
	case strings.HasPrefix(src, "http"):
		return l.download(ctx, src)
	case strings.HasPrefix(src, base64Scheme):
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(src, base64Scheme))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 image: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported image source %q", src)
	}
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	if l.downgradeHTTPS {
		url = strings.Replace(url, "https://", "http://", 1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download image: http status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded image is empty")
	}
	return data, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
