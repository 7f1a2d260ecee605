package session

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	in := &Session{
		UserID:    "user-42",
		IP:        "2001:db8::1",
		UserAgent: strings.Repeat("a", 600),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.IP != in.IP || out.UserAgent != in.UserAgent {
		t.Fatalf("mismatch: %+v", out)
	}
	if !out.IssuedAt.Equal(in.IssuedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("time mismatch: %v %v", out.IssuedAt, out.ExpiresAt)
	}
}

func TestEncodeTruncatesUserAgent(t *testing.T) {
	data, err := Encode(&Session{UserID: "u", UserAgent: strings.Repeat("x", maxUserAgentLen+50)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.UserAgent) != maxUserAgentLen {
		t.Fatalf("expected truncated user agent, got %d bytes", len(out.UserAgent))
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	data, err := Encode(&Session{UserID: "u-1", IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 1; i < len(data); i++ {
		if _, err := Decode(data[:i]); err == nil {
			t.Fatalf("decode accepted %d-byte prefix", i)
		}
	}
	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatalf("decode accepted trailing bytes")
	}
}

func TestEncodeRejectsOversizedUserID(t *testing.T) {
	if _, err := Encode(&Session{UserID: strings.Repeat("u", 256)}); err == nil {
		t.Fatalf("expected error for long user id")
	}
}

func TestHashTokenRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "short", "!!!not-base64!!!", strings.Repeat("A", 40)} {
		if _, err := HashToken(token); err != ErrMalformedToken {
			t.Fatalf("HashToken(%q) err = %v", token, err)
		}
	}
	token, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if _, err := HashToken(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
}
