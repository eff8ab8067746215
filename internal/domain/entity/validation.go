package entity

import (
	"fmt"
	"net/netip"
	"net/url"
)

const maxURLLength = 2048

// ValidateURL checks an outbound URL taken from configuration: a webhook,
// an alert link template, or a listing page. It must be absolute http(s),
// at most maxURLLength bytes, and must not name a literal loopback,
// link-local, private or unspecified address.
func ValidateURL(rawURL string) error {
	switch {
	case rawURL == "":
		return &ValidationError{Field: "url", Message: "url is required"}
	case len(rawURL) > maxURLLength:
		return &ValidationError{Field: "url", Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength)}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "url is invalid: " + err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "url must use http or https"}
	}
	if u.Hostname() == "" {
		return &ValidationError{Field: "url", Message: "url must have a host"}
	}
	if addr, err := netip.ParseAddr(u.Hostname()); err == nil && internalAddr(addr) {
		return &ValidationError{Field: "url", Message: "url must not point to an internal address"}
	}
	return nil
}

func internalAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() ||
		a.IsLinkLocalMulticast() || a.IsUnspecified()
}
