// Package loader fetches and decodes policy and solution documents
// from local paths or http(s) URLs.
package loader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hostcomply/hostcomply/internal/models"
)

// Config controls remote fetches.
type Config struct {
	// AllowPrivateHosts permits URLs that resolve to loopback or
	// private ranges, for lab and test setups.
	AllowPrivateHosts bool
	MaxRedirects      int
	Timeout           time.Duration
	MaxSize           int64
}

const DefaultMaxDocumentSize = 10 * 1024 * 1024

func DefaultConfig() Config {
	return Config{
		AllowPrivateHosts: false,
		MaxRedirects:      5,
		Timeout:           60 * time.Second,
		MaxSize:           DefaultMaxDocumentSize,
	}
}

// LoadPolicy reads, decodes and validates a policy document.
func LoadPolicy(ctx context.Context, source string, config Config) (*models.Policy, error) {
	data, err := fetch(ctx, source, config)
	if err != nil {
		return nil, err
	}
	var policy models.Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", source, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", source, err)
	}
	return &policy, nil
}

// LoadSolutions reads and decodes a standalone solutions document.
func LoadSolutions(ctx context.Context, source string, config Config) ([]models.SolutionEntry, error) {
	data, err := fetch(ctx, source, config)
	if err != nil {
		return nil, err
	}
	var entries []models.SolutionEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode solutions %s: %w", source, err)
	}
	return entries, nil
}

// SolutionsPathFor derives the companion solutions source for a policy
// source: the extension is prefixed with "_solutions", so
// "cis_debian.yml" becomes "cis_debian_solutions.yml". Works for URLs
// the same way it works for paths.
func SolutionsPathFor(source string) string {
	dot := strings.LastIndex(source, ".")
	if dot < 0 {
		return source + "_solutions"
	}
	return source[:dot] + "_solutions" + source[dot:]
}

// ResolveSolutions attaches file-loaded solutions to checks that carry
// none of their own. An inline solution always wins over the file.
func ResolveSolutions(policy *models.Policy, entries []models.SolutionEntry) {
	byID := make(map[int]*models.Solution, len(entries))
	for _, entry := range entries {
		if entry.Solution != nil {
			byID[entry.ID] = entry.Solution
		}
	}
	for i := range policy.Checks {
		if policy.Checks[i].Solution == nil {
			policy.Checks[i].Solution = byID[policy.Checks[i].ID]
		}
	}
}

func fetch(ctx context.Context, source string, config Config) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchURL(ctx, source, config)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("is a directory: %s", source)
	}
	return os.ReadFile(source)
}

func fetchURL(ctx context.Context, rawURL string, config Config) ([]byte, error) {
	if err := validateURL(rawURL, config.AllowPrivateHosts); err != nil {
		return nil, fmt.Errorf("invalid document URL: %w", err)
	}

	client := newClient(config)
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxDocumentSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("fetch %s: document exceeds %d bytes", rawURL, maxSize)
	}
	return data, nil
}

func validateURL(rawURL string, allowPrivate bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	// SECURITY: Block private/reserved IPs (unless explicitly allowed)
	if !allowPrivate {
		host := strings.ToLower(parsed.Hostname())
		if host == "localhost" {
			return fmt.Errorf("localhost not allowed (use --allow-private-hosts to override)")
		}
		ip := net.ParseIP(host)
		if ip != nil && isPrivateOrReservedIP(ip) {
			return fmt.Errorf("private/reserved IP address not allowed: %s (use --allow-private-hosts to override)", host)
		}
	}
	return nil
}

func isPrivateOrReservedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		ip.IsMulticast()
}

func newClient(config Config) *http.Client {
	maxRedirects := config.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}

	var dialCtx func(ctx context.Context, network, addr string) (net.Conn, error)
	if config.AllowPrivateHosts {
		dialer := &net.Dialer{Timeout: 30 * time.Second}
		dialCtx = dialer.DialContext
	} else {
		dialCtx = safeDialContext
	}

	return &http.Client{
		Timeout: config.Timeout,
		// SECURITY: Validate each redirect target
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			if err := validateURL(req.URL.String(), config.AllowPrivateHosts); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			if len(via) > 0 && via[len(via)-1].URL.Scheme == "https" && req.URL.Scheme == "http" {
				return fmt.Errorf("HTTPS to HTTP downgrade not allowed")
			}
			return nil
		},
		Transport: &http.Transport{
			// SECURITY: Validate resolved IPs at connect time
			DialContext: dialCtx,
			// SECURITY: Disable proxy to prevent SSRF via proxy
			Proxy: nil,
		},
	}
}

func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %s", host)
	}
	for _, ip := range ips {
		if isPrivateOrReservedIP(ip) {
			return nil, fmt.Errorf("DNS resolved to private/reserved IP address (%s -> %s); connection blocked", host, ip.String())
		}
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}
