package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseSemver(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want semver
		ok   bool
	}{
		{"plain", "1.2.3", semver{1, 2, 3}, true},
		{"prerelease", "0.3.5-beta.2", semver{0, 3, 5}, true},
		{"build metadata", "1.2.3+build.7", semver{1, 2, 3}, true},
		{"too few parts", "1.2", semver{}, false},
		{"too many parts", "1.2.3.4", semver{}, false},
		{"non-numeric", "a.b.c", semver{}, false},
		{"empty", "", semver{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseSemver(tc.in)
			if ok != tc.ok {
				t.Fatalf("parseSemver(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("parseSemver(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestClientVersionGate_CompatibilityMatrix(t *testing.T) {
	cases := []struct {
		name       string
		serviceVer string
		clientVer  string
		compatible bool
	}{
		{"same major.minor, different patch and prerelease", "0.3.0-beta.2", "0.3.5-beta.2", true},
		{"missing header is compatible", "0.3.0", "", true},
		{"different minor is incompatible", "0.3.0", "0.4.0", false},
		{"different major is incompatible", "0.3.0", "1.0.0", false},
		{"unparsable client header is incompatible", "0.3.0", "not-a-version", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := clientVersionGate(tc.serviceVer)

			called := false
			next := gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.clientVer != "" {
				req.Header.Set("X-zkPass-Client", tc.clientVer)
			}
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req)

			if called != tc.compatible {
				t.Fatalf("compatible = %v, want %v", called, tc.compatible)
			}
		})
	}
}
