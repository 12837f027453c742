package capture

import (
	"fmt"
	"net/url"
	"strings"
)

// DSN builds the client DSN pointing at a capture server reachable at
// baseURL. localhost is rewritten to 127.0.0.1 so clients do not try the
// IPv6 loopback first.
func DSN(baseURL, key, project string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("capture: dsn base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("capture: dsn base url %q needs scheme and host", baseURL)
	}
	host := u.Host
	if h := u.Hostname(); h == "localhost" {
		host = strings.Replace(host, "localhost", "127.0.0.1", 1)
	}
	u.Host = host
	if key != "" {
		u.User = url.User(key)
	}
	u.Path = "/" + strings.Trim(project, "/")
	return u.String(), nil
}
