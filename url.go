package lnurl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// MaxURLLength bounds the raw text of any service URL. Anything longer is
// rejected before parsing.
const MaxURLLength = 4096

// StrictRFC3986Env is the environment variable that, when set to "1",
// restricts URLs to the unescaped RFC 3986 character set. It is read on
// every parse so tests and callers can toggle it at runtime.
const StrictRFC3986Env = "LNURL_STRICT_RFC3986"

var (
	// Control characters are never valid in a URL, escaped or not.
	ctrlCharRe = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)

	// Everything outside the RFC 3986 unreserved and reserved sets.
	// Only enforced in strict mode.
	nonRFC3986Re = regexp.MustCompile(`[^\]a-zA-Z0-9._~:/?#\[@!$&'()*+,;=-]`)

	lnAddressRe = regexp.MustCompile(
		`^[a-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,63}$`,
	)
)

// URL is a validated LNURL service URL. Only https is accepted for clearnet
// hosts; http is allowed for tor hidden services and local development
// hosts. The value is immutable once parsed, the raw text is kept alongside
// the parsed form.
type URL struct {
	raw    string
	parsed *url.URL
}

// ParseURL validates rawURL and returns its immutable parsed form.
func ParseURL(rawURL string) (*URL, error) {
	if len(rawURL) > MaxURLLength {
		return nil, fmt.Errorf("%w: exceeds %d characters",
			ErrInvalidURL, MaxURLLength)
	}
	if ctrlCharRe.MatchString(rawURL) {
		return nil, fmt.Errorf("%w: contains control characters",
			ErrInvalidURL)
	}
	if os.Getenv(StrictRFC3986Env) == "1" &&
		nonRFC3986Re.MatchString(rawURL) {

		return nil, fmt.Errorf("%w: contains characters outside the "+
			"RFC 3986 set", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	switch parsed.Scheme {
	case "https":

	case "http":
		// Tor hidden services have no CA-issued certificates and
		// local development hosts rarely do, so plain http is only
		// admissible there.
		if !isOnionHost(host) && !isLocalHost(host) {
			return nil, fmt.Errorf("%w: http is only allowed for "+
				"onion and local hosts, got host '%s'",
				ErrInvalidURL, host)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported scheme '%s'",
			ErrInvalidURL, parsed.Scheme)
	}

	return &URL{raw: rawURL, parsed: parsed}, nil
}

func isOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".onion")
}

func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "127.0.0.1", "0.0.0.0", "localhost":
		return true
	}
	return false
}

// String returns the exact text the URL was parsed from.
func (u *URL) String() string {
	return u.raw
}

// Scheme returns the URL scheme, https or http.
func (u *URL) Scheme() string {
	return u.parsed.Scheme
}

// Host returns the host, including the port when one was given.
func (u *URL) Host() string {
	return u.parsed.Host
}

// Hostname returns the host without any port.
func (u *URL) Hostname() string {
	return u.parsed.Hostname()
}

// Path returns the URL path.
func (u *URL) Path() string {
	return u.parsed.Path
}

// IsOnion reports whether the URL points at a tor hidden service.
func (u *URL) IsOnion() bool {
	return isOnionHost(u.parsed.Hostname())
}

// Base returns the URL stripped of its query string and fragment.
func (u *URL) Base() string {
	base := u.parsed.Scheme + "://" + u.parsed.Host + u.parsed.Path
	return base
}

// Query returns all decoded query parameters, with every repeated value.
func (u *URL) Query() url.Values {
	return u.parsed.Query()
}

// QueryParams returns the decoded query parameters as a flat map. When a
// key is repeated the first value wins.
func (u *URL) QueryParams() map[string]string {
	query := u.parsed.Query()
	params := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// MarshalJSON encodes the URL as its raw string.
func (u URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.raw)
}

// UnmarshalJSON decodes and validates a URL from a JSON string.
func (u *URL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseURL(raw)
	if err != nil {
		return err
	}
	*u = *parsed
	return nil
}

// LightningAddress is a LUD-16 identifier of the form user@domain, shaped
// like an email address. The local part may carry a +tag suffix which
// services use for payer-side labeling and which is not part of the
// well-known path.
type LightningAddress struct {
	raw    string
	name   string
	tag    string
	domain string
}

// ParseLightningAddress validates addr and splits it into its parts.
func ParseLightningAddress(addr string) (*LightningAddress, error) {
	if !lnAddressRe.MatchString(addr) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidAddress, addr)
	}

	at := strings.Index(addr, "@")
	local, domain := addr[:at], addr[at+1:]

	name, tag := local, ""
	if plus := strings.Index(local, "+"); plus != -1 {
		name, tag = local[:plus], local[plus+1:]
	}
	if name == "" {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidAddress, addr)
	}

	return &LightningAddress{
		raw:    addr,
		name:   name,
		tag:    tag,
		domain: domain,
	}, nil
}

// String returns the full address text.
func (a *LightningAddress) String() string {
	return a.raw
}

// Name returns the local part with any +tag suffix removed.
func (a *LightningAddress) Name() string {
	return a.name
}

// Tag returns the +tag suffix of the local part, if any.
func (a *LightningAddress) Tag() string {
	return a.tag
}

// Domain returns the part after the @.
func (a *LightningAddress) Domain() string {
	return a.domain
}

// CallbackURL maps the address onto its LUD-16 well-known pay endpoint.
// Onion domains get http, everything else https.
func (a *LightningAddress) CallbackURL() (*URL, error) {
	scheme := "https"
	if isOnionHost(a.domain) {
		scheme = "http"
	}
	raw := fmt.Sprintf("%s://%s/.well-known/lnurlp/%s",
		scheme, a.domain, a.name)

	return ParseURL(raw)
}

// NodeURI identifies a lightning node as pubkey@host:port.
type NodeURI struct {
	raw  string
	key  string
	host string
	port string
}

// ParseNodeURI validates uri and splits it into key, host and port.
func ParseNodeURI(uri string) (*NodeURI, error) {
	at := strings.Index(uri, "@")
	if at == -1 {
		return nil, fmt.Errorf("invalid node uri '%s': missing @", uri)
	}
	key, netloc := uri[:at], uri[at+1:]

	colon := strings.LastIndex(netloc, ":")
	if colon == -1 {
		return nil, fmt.Errorf("invalid node uri '%s': missing port",
			uri)
	}
	host, port := netloc[:colon], netloc[colon+1:]

	if key == "" || host == "" || port == "" {
		return nil, fmt.Errorf("invalid node uri '%s'", uri)
	}

	return &NodeURI{raw: uri, key: key, host: host, port: port}, nil
}

// String returns the full uri text.
func (n *NodeURI) String() string {
	return n.raw
}

// Key returns the node public key in hex.
func (n *NodeURI) Key() string {
	return n.key
}

// Host returns the network address of the node.
func (n *NodeURI) Host() string {
	return n.host
}

// Port returns the port of the node, as given.
func (n *NodeURI) Port() string {
	return n.port
}

// MarshalJSON encodes the uri as its raw string.
func (n NodeURI) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.raw)
}

// UnmarshalJSON decodes and validates a node uri from a JSON string.
func (n *NodeURI) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseNodeURI(raw)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}
