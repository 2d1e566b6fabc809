package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTurnstileVerifySuccess(t *testing.T) {
	var gotSecret, gotResponse, gotRemoteIP string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotSecret = r.FormValue("secret")
		gotResponse = r.FormValue("response")
		gotRemoteIP = r.FormValue("remoteip")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewTurnstile("secret-key", srv.URL)
	if err := v.Verify(context.Background(), "token-123", "203.0.113.9"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if gotSecret != "secret-key" || gotResponse != "token-123" || gotRemoteIP != "203.0.113.9" {
		t.Errorf("form = secret:%s response:%s remoteip:%s", gotSecret, gotResponse, gotRemoteIP)
	}
}

func TestTurnstileVerifyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewTurnstile("secret-key", srv.URL)
	err := v.Verify(context.Background(), "bad-token", "")
	if err == nil || !strings.Contains(err.Error(), "invalid-input-response") {
		t.Errorf("err = %v", err)
	}
}

func TestTurnstileVerifyEmptyToken(t *testing.T) {
	v := NewTurnstile("secret-key", "http://unused.invalid")
	if err := v.Verify(context.Background(), "", ""); err == nil {
		t.Error("empty token accepted")
	}
}

func TestNoopAcceptsEverything(t *testing.T) {
	if err := (Noop{}).Verify(context.Background(), "", ""); err != nil {
		t.Errorf("noop rejected: %v", err)
	}
}
