package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// remoteAddrSeen runs a request through TrustedRealIP and returns the
// RemoteAddr the inner handler observed.
func remoteAddrSeen(t *testing.T, trusted []string, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var seen string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	handler.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestTrustedRealIP_RewritesFromTrustedProxy(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:4567",
		map[string]string{"X-Real-IP": "203.0.113.9"})
	if got != "203.0.113.9" {
		t.Errorf("RemoteAddr = %q, want %q", got, "203.0.113.9")
	}
}

func TestTrustedRealIP_ForwardedForFirstHop(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:4567",
		map[string]string{"X-Forwarded-For": "198.51.100.7, 10.1.2.3, 10.0.0.1"})
	if got != "198.51.100.7" {
		t.Errorf("RemoteAddr = %q, want %q", got, "198.51.100.7")
	}
}

func TestTrustedRealIP_RealIPWinsOverForwardedFor(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:4567",
		map[string]string{
			"X-Real-IP":       "203.0.113.9",
			"X-Forwarded-For": "198.51.100.7",
		})
	if got != "203.0.113.9" {
		t.Errorf("RemoteAddr = %q, want %q", got, "203.0.113.9")
	}
}

func TestTrustedRealIP_UntrustedKeepsRemoteAddr(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "172.16.5.5:1000",
		map[string]string{"X-Real-IP": "203.0.113.9"})
	if got != "172.16.5.5:1000" {
		t.Errorf("RemoteAddr = %q, want unchanged %q", got, "172.16.5.5:1000")
	}
}

func TestTrustedRealIP_NoHeadersUnchanged(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:4567", nil)
	if got != "10.1.2.3:4567" {
		t.Errorf("RemoteAddr = %q, want unchanged %q", got, "10.1.2.3:4567")
	}
}

func TestTrustedRealIP_UnparseableHeaderIgnored(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:4567",
		map[string]string{"X-Real-IP": "not-an-ip"})
	if got != "10.1.2.3:4567" {
		t.Errorf("RemoteAddr = %q, want unchanged %q", got, "10.1.2.3:4567")
	}
}

func TestTrustedRealIP_BareIPEntry(t *testing.T) {
	got := remoteAddrSeen(t, []string{"10.1.2.3"}, "10.1.2.3:4567",
		map[string]string{"X-Real-IP": "203.0.113.9"})
	if got != "203.0.113.9" {
		t.Errorf("RemoteAddr = %q, want %q", got, "203.0.113.9")
	}

	got = remoteAddrSeen(t, []string{"10.1.2.3"}, "10.1.2.4:4567",
		map[string]string{"X-Real-IP": "203.0.113.9"})
	if got != "10.1.2.4:4567" {
		t.Errorf("neighbor RemoteAddr = %q, want unchanged %q", got, "10.1.2.4:4567")
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    []string
	}{
		{"cidr kept", []string{"10.0.0.0/8"}, []string{"10.0.0.0/8"}},
		{"bare ipv4 widened", []string{"192.168.1.5"}, []string{"192.168.1.5/32"}},
		{"bare ipv6 widened", []string{"2001:db8::1"}, []string{"2001:db8::1/128"}},
		{"invalid skipped", []string{"not-a-cidr", "10.0.0.0/8"}, []string{"10.0.0.0/8"}},
		{"blank skipped", []string{"", "  ", "127.0.0.1"}, []string{"127.0.0.1/32"}},
		{"empty list", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nets := parseTrustedProxies(tt.entries)
			if len(nets) != len(tt.want) {
				t.Fatalf("parsed %d networks, want %d", len(nets), len(tt.want))
			}
			for i, want := range tt.want {
				if got := nets[i].String(); got != want {
					t.Errorf("network[%d] = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"host and port", "192.168.1.1:8080", "192.168.1.1"},
		{"bare ip", "192.168.1.1", "192.168.1.1"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"garbage", "not-an-address", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := extractIP(tt.addr)
			got := ""
			if ip != nil {
				got = ip.String()
			}
			if got != tt.want {
				t.Errorf("extractIP(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestIsTrusted_NilIP(t *testing.T) {
	nets := parseTrustedProxies([]string{"10.0.0.0/8"})
	if isTrusted(nil, nets) {
		t.Error("nil IP reported as trusted")
	}
}
