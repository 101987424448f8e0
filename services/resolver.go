package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"hostsboard/common"
)

// ErrNoAddress is returned when no tier produced a usable address.
var ErrNoAddress = errors.New("no address")

const dnsTypeA = 1

// Resolver looks a name up through an optional local helper, then a public
// DNS-over-HTTPS endpoint.
type Resolver struct {
	Client   *http.Client
	LocalURL string
	DoHURL   string
}

func NewResolver(client *http.Client, localURL, dohURL string) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{Client: client, LocalURL: localURL, DoHURL: dohURL}
}

// Resolve returns the first address found. Failures are logged and folded
// into an ErrNoAddress-wrapped error; the caller shows N/A.
func (r *Resolver) Resolve(ctx context.Context, fqdn string, useLocal bool) (string, error) {
	if useLocal && r.LocalURL != "" {
		ip, err := r.resolveLocal(ctx, fqdn)
		if err == nil {
			return ip, nil
		}
		common.DebugLog("resolve: local helper miss for %s: %v", fqdn, err)
	}

	ip, err := r.resolveDoH(ctx, fqdn)
	if err != nil {
		common.DebugLog("resolve: doh miss for %s: %v", fqdn, err)
		return "", fmt.Errorf("%w for %s: %v", ErrNoAddress, fqdn, err)
	}
	return ip, nil
}

type localAnswer struct {
	IP      string `json:"ip"`
	Address string `json:"address"`
}

func (r *Resolver) resolveLocal(ctx context.Context, fqdn string) (string, error) {
	u, err := withQuery(r.LocalURL, url.Values{"name": {fqdn}})
	if err != nil {
		return "", err
	}
	var ans localAnswer
	if err := r.getJSON(ctx, u, "application/json", &ans); err != nil {
		return "", err
	}
	if ip := firstNonEmpty(strings.TrimSpace(ans.IP), strings.TrimSpace(ans.Address)); ip != "" {
		return ip, nil
	}
	return "", errors.New("local helper: no address field")
}

// dnsJSON is the subset of the application/dns-json format we read.
type dnsJSON struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		TTL  int    `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func (r *Resolver) resolveDoH(ctx context.Context, fqdn string) (string, error) {
	u, err := withQuery(r.DoHURL, url.Values{"name": {fqdn}, "type": {"A"}})
	if err != nil {
		return "", err
	}
	var resp dnsJSON
	if err := r.getJSON(ctx, u, "application/dns-json", &resp); err != nil {
		return "", err
	}
	if len(resp.Answer) == 0 {
		return "", errors.New("doh: empty answer")
	}
	pick := resp.Answer[0]
	for _, a := range resp.Answer {
		if a.Type == dnsTypeA {
			pick = a
			break
		}
	}
	if pick.Data == "" {
		return "", errors.New("doh: answer without data")
	}
	return pick.Data, nil
}

func (r *Resolver) getJSON(ctx context.Context, u, accept string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", accept)
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// withQuery merges q into the query string of base.
func withQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}
