package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// HeaderName is the request header the host page uses to announce the
// session to the daemon.
const HeaderName = "Commerce-Session"

// ParseHeader reads a Commerce-Session header (RFC 8941 Dictionary).
//
// Examples:
//   - authenticated=?1, user="u_123", token="abc" → Authenticated("u_123", "abc")
//   - authenticated=?0                            → Anonymous()
//
// An authenticated session must name a user.
func ParseHeader(header string) (State, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return State{}, errors.New("empty Commerce-Session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return State{}, fmt.Errorf("invalid Commerce-Session header: %w", err)
	}

	authed, err := boolMember(dict, "authenticated")
	if err != nil {
		return State{}, err
	}
	if !authed {
		return Anonymous(), nil
	}

	user, err := stringMember(dict, "user")
	if err != nil {
		return State{}, err
	}
	if user == "" {
		return State{}, errors.New("authenticated session requires user")
	}
	token, err := stringMember(dict, "token")
	if err != nil {
		return State{}, err
	}
	return Authenticated(user, token), nil
}

// FormatHeader renders st as a Commerce-Session header value.
func FormatHeader(st State) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("authenticated", httpsfv.NewItem(st.Authenticated))
	if st.Authenticated {
		dict.Add("user", httpsfv.NewItem(st.UserID))
		if st.Token != "" {
			dict.Add("token", httpsfv.NewItem(st.Token))
		}
	}
	return httpsfv.Marshal(dict)
}

func boolMember(dict *httpsfv.Dictionary, key string) (bool, error) {
	member, ok := dict.Get(key)
	if !ok {
		return false, fmt.Errorf("%s key not found in Commerce-Session header", key)
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return false, fmt.Errorf("%s value must be an item", key)
	}
	v, ok := item.Value.(bool)
	if !ok {
		return false, fmt.Errorf("%s value must be a boolean", key)
	}
	return v, nil
}

// stringMember returns "" when key is absent.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	v, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return v, nil
}
