// File path: cmd/auditor/services_test.go
package main

import "testing"

func TestHostPortFromAddr(t *testing.T) {
	cases := []struct {
		name string
		addr string
		host string
		port int
	}{
		{name: "empty", addr: "", host: "127.0.0.1", port: 8000},
		{name: "host and port", addr: "10.0.0.5:9000", host: "10.0.0.5", port: 9000},
		{name: "scheme stripped", addr: "http://localhost:8000", host: "localhost", port: 8000},
		{name: "bare host", addr: "inference-box", host: "inference-box", port: 8000},
		{name: "blank host", addr: ":8123", host: "127.0.0.1", port: 8123},
		{name: "bad port", addr: "localhost:none", host: "localhost", port: 8000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host, port := hostPortFromAddr(tc.addr)
			if host != tc.host || port != tc.port {
				t.Fatalf("hostPortFromAddr(%q) = %q, %d; want %q, %d", tc.addr, host, port, tc.host, tc.port)
			}
		})
	}
}
