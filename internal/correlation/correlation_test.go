package correlation

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		entryID, siteID, contentID int64
		env                        string
	}{
		{1, 1, 1, "production"},
		{42, 7, 99, "staging"},
		{0, 0, 0, "development"},
		{9223372036854775807, 1, 2, "production"},
	}

	for _, tc := range cases {
		encoded := Encode(tc.entryID, tc.siteID, tc.contentID, tc.env)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", encoded, err)
		}
		if decoded.EntryID != tc.entryID || decoded.SiteID != tc.siteID || decoded.ContentID != tc.contentID || decoded.Env != tc.env {
			t.Errorf("round trip of %+v gave %+v", tc, decoded)
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	encoded := Encode(42, 1, 7, "production")
	want := "e:42|s:1|c:7|env:production"
	if encoded != want {
		t.Errorf("Encode = %q, want %q", encoded, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"e:1|s:2|c:3",              // missing env
		"e:1|s:2|env:production",   // missing content
		"e:x|s:2|c:3|env:prod",     // non-numeric entry
		"e:1|e:2|c:3|env:prod",     // duplicate key
		"e:1|s:2|c:3|env:prod|bad", // segment without separator
	}

	for _, input := range cases {
		_, err := Decode(input)
		if err == nil {
			t.Errorf("Decode(%q) succeeded, want malformed error", input)
			continue
		}
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			t.Errorf("Decode(%q) returned %T, want *MalformedError", input, err)
		}
	}
}

func TestDecodeUnknownKeysPassThrough(t *testing.T) {
	decoded, err := Decode("e:1|s:2|c:3|x:extra|env:staging")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Extra["x"] != "extra" {
		t.Errorf("unknown key not passed through: %+v", decoded.Extra)
	}
	if decoded.Env != "staging" {
		t.Errorf("Env = %q, want staging", decoded.Env)
	}
}
