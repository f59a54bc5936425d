package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
)

// ChannelKey is the canonical, stable identifier of a channel (UC...)
type ChannelKey string

func (k ChannelKey) String() string { return string(k) }

var channelKeyRe = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// Valid reports whether k has the shape of a channel id
func (k ChannelKey) Valid() bool {
	return channelKeyRe.MatchString(string(k))
}

// UploadsPlaylistID derives the uploads playlist id (UC... -> UU...)
func (k ChannelKey) UploadsPlaylistID() string {
	if !k.Valid() {
		return ""
	}
	return "UU" + string(k)[2:]
}

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported StringSlice source %T", value)
	}
}
