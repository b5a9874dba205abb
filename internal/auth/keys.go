package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// Keys maps API keys to client labels.
type Keys struct {
	byKey map[string]string
}

// ParseKeys reads a comma-separated list of label=key pairs. A bare key is
// labelled "default".
func ParseKeys(spec string) (*Keys, error) {
	k := &Keys{byKey: make(map[string]string)}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, key, found := strings.Cut(part, "=")
		if !found {
			label, key = "default", part
		}
		label, key = strings.TrimSpace(label), strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("api key for %q is empty", label)
		}
		k.byKey[key] = label
	}
	return k, nil
}

// Empty reports whether no keys are configured.
func (k *Keys) Empty() bool {
	return k == nil || len(k.byKey) == 0
}

// Lookup returns the client for key. Every configured key is compared in
// constant time.
func (k *Keys) Lookup(key string) (Client, bool) {
	if k == nil || key == "" {
		return Client{}, false
	}
	var match string
	found := false
	for candidate, label := range k.byKey {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			match, found = label, true
		}
	}
	return Client{Label: match}, found
}
