package directory

import (
	"net/url"
	"strings"

	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/internal/quota"
)

// Kind is the syntactic form of a user-supplied channel identifier
type Kind int

const (
	KindInvalid Kind = iota
	KindChannelID
	KindChannelURL
	KindHandle
	KindUsername
	KindCustomURL
	KindName
)

func (k Kind) String() string {
	switch k {
	case KindChannelID:
		return "channel_id"
	case KindChannelURL:
		return "channel_url"
	case KindHandle:
		return "handle"
	case KindUsername:
		return "username"
	case KindCustomURL:
		return "custom_url"
	case KindName:
		return "name"
	default:
		return "invalid"
	}
}

// Identifier is a classified channel identifier.
// Raw is the trimmed input and the directory key; Value is the part the
// resolver needs (the key, the handle with its @, the username or the query).
type Identifier struct {
	Kind  Kind
	Raw   string
	Value string
}

// Key returns the channel key when the identifier carries one
func (id Identifier) Key() (models.ChannelKey, bool) {
	if id.Kind == KindChannelID || id.Kind == KindChannelURL {
		return models.ChannelKey(id.Value), true
	}
	return "", false
}

// Operation returns the quota operation a remote resolution costs
func (id Identifier) Operation() quota.Operation {
	switch id.Kind {
	case KindHandle, KindUsername:
		return quota.OpChannelInfo
	default:
		return quota.OpSearch
	}
}

// Classify recognizes the form of raw
func Classify(raw string) Identifier {
	raw = strings.TrimSpace(raw)
	id := Identifier{Raw: raw}
	if raw == "" {
		return id
	}

	if models.ChannelKey(raw).Valid() {
		id.Kind, id.Value = KindChannelID, raw
		return id
	}

	if strings.HasPrefix(raw, "@") && !strings.ContainsAny(raw, " /") {
		id.Kind, id.Value = KindHandle, raw
		return id
	}

	if segments, ok := youtubePath(raw); ok {
		classifyPath(&id, segments)
		return id
	}

	id.Kind, id.Value = KindName, raw
	return id
}

// youtubePath returns the path segments of a youtube.com URL
func youtubePath(raw string) ([]string, bool) {
	s := raw
	if !strings.Contains(s, "://") {
		if !strings.Contains(strings.ToLower(s), "youtube.com/") {
			return nil, false
		}
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" {
		return nil, false
	}

	var segments []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments, true
}

func classifyPath(id *Identifier, segments []string) {
	if len(segments) == 0 {
		return
	}

	first := segments[0]
	switch {
	case strings.HasPrefix(first, "@") && len(first) > 1:
		id.Kind, id.Value = KindHandle, first
	case first == "channel" && len(segments) > 1:
		if models.ChannelKey(segments[1]).Valid() {
			id.Kind, id.Value = KindChannelURL, segments[1]
		}
	case first == "user" && len(segments) > 1:
		id.Kind, id.Value = KindUsername, segments[1]
	case first == "c" && len(segments) > 1:
		id.Kind, id.Value = KindCustomURL, segments[1]
	case first != "watch" && first != "playlist" && first != "results" && first != "feed":
		// legacy vanity URL, youtube.com/name
		id.Kind, id.Value = KindCustomURL, first
	}
}
