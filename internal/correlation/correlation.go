// Package correlation implements the reversible identifier exchanged with
// the remote analysis service. The textual form is a fixed-order sequence
// of key:value segments joined by "|", with the environment tag last:
//
//	e:42|s:1|c:7|env:production
//
// The environment tag keeps an identifier minted in one environment from
// resolving in another.
package correlation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	segmentSep  = "|"
	keyValueSep = ":"
	keyEntry    = "e"
	keySite     = "s"
	keyContent  = "c"
	keyEnv      = "env"
)

// ID is the decoded form of a correlation identifier. Extra holds
// segments with unknown keys, passed through unchanged so that newer
// encoders can add segments without breaking older decoders.
type ID struct {
	EntryID   int64
	SiteID    int64
	ContentID int64
	Env       string
	Extra     map[string]string
}

// MalformedError reports a correlation id string that cannot be decoded.
type MalformedError struct {
	Value  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed correlation id %q: %s", e.Value, e.Reason)
}

// Encode produces the wire form of a correlation id.
func Encode(entryID, siteID, contentID int64, env string) string {
	return strings.Join([]string{
		keyEntry + keyValueSep + strconv.FormatInt(entryID, 10),
		keySite + keyValueSep + strconv.FormatInt(siteID, 10),
		keyContent + keyValueSep + strconv.FormatInt(contentID, 10),
		keyEnv + keyValueSep + env,
	}, segmentSep)
}

// Decode parses a correlation id string. It returns *MalformedError for
// any input that is not a well-formed id; it never panics on garbage.
func Decode(value string) (*ID, error) {
	if value == "" {
		return nil, &MalformedError{Value: value, Reason: "empty"}
	}

	id := &ID{}
	seen := map[string]bool{}
	for _, segment := range strings.Split(value, segmentSep) {
		key, raw, ok := strings.Cut(segment, keyValueSep)
		if !ok || key == "" {
			return nil, &MalformedError{Value: value, Reason: fmt.Sprintf("segment %q is not key:value", segment)}
		}
		if seen[key] {
			return nil, &MalformedError{Value: value, Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		seen[key] = true

		switch key {
		case keyEntry, keySite, keyContent:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, &MalformedError{Value: value, Reason: fmt.Sprintf("key %q has non-numeric value %q", key, raw)}
			}
			switch key {
			case keyEntry:
				id.EntryID = n
			case keySite:
				id.SiteID = n
			case keyContent:
				id.ContentID = n
			}
		case keyEnv:
			id.Env = raw
		default:
			if id.Extra == nil {
				id.Extra = map[string]string{}
			}
			id.Extra[key] = raw
		}
	}

	for _, key := range []string{keyEntry, keySite, keyContent, keyEnv} {
		if !seen[key] {
			return nil, &MalformedError{Value: value, Reason: fmt.Sprintf("missing key %q", key)}
		}
	}
	return id, nil
}
