package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dispatch-worklist-service/internal/platform/logging"
)

func modelResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func TestStandardizeSuccess(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(`{"address":"214 Lý Thường Kiệt","district":"Quận 10","ward":"Phường 14"}`)))
	}))
	defer srv.Close()

	s := NewStandardizer(srv.URL, "test-key", "test-model", 2, logging.Nop())

	res, err := s.Standardize(context.Background(), "214 ly thuong kiet q10", "ORD-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Resolved || res.Failed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.District != "Quận 10" || res.Ward != "Phường 14" {
		t.Fatalf("unexpected triple: %+v", res)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
}

func TestStandardizeFencedOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := "```json\n{\"address\":\"12 Hàm Nghi\",\"district\":\"Quận 1\",\"ward\":\"Bến Nghé\"}\n```"
		_, _ = w.Write([]byte(modelResponse(text)))
	}))
	defer srv.Close()

	s := NewStandardizer(srv.URL, "k", "m", 1, logging.Nop())

	res, err := s.Standardize(context.Background(), "12 ham nghi", "ORD-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Resolved || res.Address != "12 Hàm Nghi" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestStandardizeExplicitlyUnresolvable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelResponse(`{"address":null,"district":null,"ward":null}`)))
	}))
	defer srv.Close()

	s := NewStandardizer(srv.URL, "k", "m", 1, logging.Nop())

	res, err := s.Standardize(context.Background(), "???", "ORD-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Resolved {
		t.Fatalf("expected unresolved, got %+v", res)
	}
	if res.Failed {
		t.Fatal("explicit nulls are not a failure")
	}
	if res.Address != "???" {
		t.Fatalf("expected original input back, got %q", res.Address)
	}
}

func TestParseModelText(t *testing.T) {
	cases := []struct {
		name        string
		in          string
		wantErr     bool
		wantResolve bool
	}{
		{
			name:        "bare object",
			in:          `{"address":"a","district":"d","ward":"w"}`,
			wantResolve: true,
		},
		{
			name:        "object with surrounding prose",
			in:          `Kết quả: {"address":"a","district":"d","ward":"w"} xin cảm ơn`,
			wantResolve: true,
		},
		{
			name:        "escaped quotes and newlines",
			in:          "{\\\"address\\\":\\\"a\\\",\\n\\\"district\\\":\\\"d\\\",\\\"ward\\\":\\\"w\\\"}",
			wantResolve: true,
		},
		{
			name:    "missing key is malformed",
			in:      `{"address":"a","district":"d"}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			in:      "xin lỗi, tôi không thể",
			wantErr: true,
		},
		{
			name: "all null is unresolvable not error",
			in:   `{"address":null,"district":null,"ward":null}`,
		},
		{
			name: "empty strings are unresolvable",
			in:   `{"address":"","district":"","ward":""}`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := parseModelText(c.in)
			if c.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Resolved != c.wantResolve {
				t.Fatalf("resolved = %v, want %v", res.Resolved, c.wantResolve)
			}
		})
	}
}

func TestStandardizeServerErrorEventuallyFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStandardizer(srv.URL, "k", "m", 1, logging.Nop())

	// Cancel quickly so the test does not sit through the full backoff
	// ladder; cancellation surfaces the error with the degraded fallback.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Standardize(ctx, "12 Hàm Nghi", "ORD-4")
	if err == nil {
		t.Fatal("expected context error")
	}
	if !res.Failed || res.Address != "12 Hàm Nghi" {
		t.Fatalf("expected failed fallback carrying the input, got %+v", res)
	}
}
