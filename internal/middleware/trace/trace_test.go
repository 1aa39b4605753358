package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware(t *testing.T) {
	const incoming = "9b2f4a8e-7c1d-4e5f-8a6b-1c2d3e4f5a6b"

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generates id", "", false},
		{"keeps valid id", incoming, true},
		{"replaces garbage", "<script>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(Header, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("context id %q is not a uuid", seen)
			}
			if got := rec.Header().Get(Header); got != seen {
				t.Errorf("response header %q != context id %q", got, seen)
			}
			if tt.keep && seen != tt.header {
				t.Errorf("id = %q, want %q", seen, tt.header)
			}
		})
	}
}
