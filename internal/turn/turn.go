// Package turn mints time-limited TURN credentials from a per-service shared
// secret, following the scheme of draft-uberti-behave-turn-rest: the username
// is the unix timestamp the credential expires at, the password is an HMAC of
// that username under the shared secret.
package turn

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/dkeye/Relay/internal/config"
)

// DefaultExpiry is applied when a server descriptor omits expiry, in seconds.
const DefaultExpiry int64 = 86400

// Credential is one TURN login. It is never stored: the same inputs re-derive
// it at any time before expiry.
type Credential struct {
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	URLs       []string `json:"urls"`
}

// Mint derives the username/password pair for one service. Pure function of
// its inputs; now is truncated to whole seconds.
func Mint(secret string, expiry int64, now time.Time) (username, password string) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	username = strconv.FormatInt(now.Unix()+expiry, 10)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	password = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return username, password
}

// Vend mints one credential per configured server for a connecting origin.
// The allow-list is all-or-nothing: an origin outside it gets no TURN
// credentials at all, an empty list admits everyone.
func Vend(servers []config.TurnServer, allowed []string, origin string, now time.Time) []Credential {
	if !OriginAllowed(allowed, origin) {
		return nil
	}
	creds := make([]Credential, 0, len(servers))
	for _, s := range servers {
		username, password := Mint(s.Secret, s.Expiry, now)
		creds = append(creds, Credential{
			Username:   username,
			Credential: password,
			URLs:       s.AllURLs(),
		})
	}
	return creds
}

func OriginAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}
