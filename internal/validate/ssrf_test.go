package validate

import "testing"

func TestIsSafeURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"plain https", "https://example.com/page", true},
		{"plain http", "http://example.com", true},
		{"public ip", "http://93.184.216.34/", true},
		{"with port", "https://example.com:8443/a?b=c", true},
		{"leading whitespace", "  https://example.com", true},

		{"javascript scheme", "javascript:alert(1)", false},
		{"javascript mixed case", "JavaScript:alert(1)", false},
		{"data scheme", "data:text/html;base64,PHNjcmlwdD4=", false},
		{"ftp scheme", "ftp://example.com/file", false},
		{"scheme relative", "//example.com", false},
		{"no scheme", "example.com", false},
		{"empty", "", false},

		{"localhost", "http://localhost/admin", false},
		{"localhost uppercase", "http://LOCALHOST:8080/", false},
		{"loopback v4", "http://127.0.0.1/", false},
		{"loopback v4 other", "http://127.0.0.53:53/", false},
		{"loopback v6", "http://[::1]/", false},
		{"ten net", "http://10.0.0.5/internal", false},
		{"one seven two net", "http://172.16.0.1/", false},
		{"one seven two edge out", "http://172.32.0.1/", true},
		{"rfc1918 192", "http://192.168.1.1/router", false},
		{"link local", "http://169.254.169.254/latest/meta-data/", false},
		{"this network", "http://0.0.0.0/", false},
		{"multicast", "http://224.0.0.1/", false},
		{"reserved", "http://240.1.2.3/", false},
		{"v6 unique local", "http://[fc00::1]/", false},
		{"v6 link local", "http://[fe80::1]/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSafeURL(tt.url); got != tt.want {
				t.Errorf("IsSafeURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsSafeURLDoesNotResolve(t *testing.T) {
	// A hostname that does not exist must still pass: the guard is lexical
	// and never performs DNS lookups.
	if !IsSafeURL("https://definitely-not-a-real-host.invalid/path") {
		t.Error("unresolvable public-looking hostname should pass the lexical check")
	}
}
