package gateway

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyIPN recomputes the keyed hash the gateway attaches to every
// webhook and compares it to the supplied verify_sign. The payload
// itself names the fields the hash covers (verify_key, comma separated);
// the store password is appended hashed, the pairs are sorted by name
// and joined k=v&k=v before hashing. A payload whose covered fields were
// tampered with in transit fails this check.
//
// md5 is the gateway's published scheme, not a choice made here.
func VerifyIPN(form url.Values, storePassword string) bool {
	sign := strings.ToLower(strings.TrimSpace(form.Get("verify_sign")))
	keyList := form.Get("verify_key")
	if sign == "" || keyList == "" {
		return false
	}

	pairs := make(map[string]string)
	for _, key := range strings.Split(keyList, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		pairs[key] = form.Get(key)
	}
	pairs["store_passwd"] = md5Hex(storePassword)

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(pairs[name])
	}

	computed := md5Hex(b.String())
	return subtle.ConstantTimeCompare([]byte(computed), []byte(sign)) == 1
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
