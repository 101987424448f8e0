// fetch.go - manifest and hosts-file retrieval
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrManifest marks a manifest failure; it aborts the whole load cycle.
var ErrManifest = errors.New("manifest unavailable")

// maxBody caps how much of an upstream document is read; larger bodies are
// rejected rather than cut mid-line.
var maxBody int64 = 16 << 20

// Repo is one manifest entry.
type Repo struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// FetchManifest downloads the repository manifest, a mapping of repository
// name to base URL. JSON and YAML bodies are both accepted; document order
// is preserved.
func FetchManifest(ctx context.Context, client *http.Client, manifestURL string) ([]Repo, error) {
	if strings.TrimSpace(manifestURL) == "" {
		return nil, fmt.Errorf("%w: no manifest URL configured", ErrManifest)
	}
	body, err := fetchText(ctx, client, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	repos, err := decodeManifest(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return repos, nil
}

func decodeManifest(body string) ([]Repo, error) {
	if t := strings.TrimSpace(body); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		return decodeJSONManifest(t)
	}
	var ms yaml.MapSlice
	if err := yaml.Unmarshal([]byte(body), &ms); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out := make([]Repo, 0, len(ms))
	for _, item := range ms {
		name, ok := item.Key.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("decode: repository name %v is not a string", item.Key)
		}
		base, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("decode: base URL for %q is not a string", name)
		}
		out = append(out, Repo{Name: name, BaseURL: base})
	}
	return out, nil
}

// decodeJSONManifest walks the object token by token so key order survives.
func decodeJSONManifest(body string) ([]Repo, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("decode: manifest is not an object")
	}
	var out []Repo
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		name, _ := tok.(string)
		var base string
		if err := dec.Decode(&base); err != nil {
			return nil, fmt.Errorf("decode: base URL for %q: %w", name, err)
		}
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("decode: empty repository name")
		}
		out = append(out, Repo{Name: name, BaseURL: base})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

// HostsURL joins a repository base URL with the hosts-file path.
func HostsURL(baseURL, hostsPath string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(hostsPath, "/")
}

// FetchHostsFile downloads the raw inventory text of one repository.
func FetchHostsFile(ctx context.Context, client *http.Client, repo Repo, hostsPath string) (string, error) {
	return fetchText(ctx, client, HostsURL(repo.BaseURL, hostsPath))
}

func fetchText(ctx context.Context, client *http.Client, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return "", fmt.Errorf("GET %s: http %d", u, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", u, err)
	}
	if int64(len(b)) > maxBody {
		return "", fmt.Errorf("GET %s: body exceeds %d bytes", u, maxBody)
	}
	return string(b), nil
}
