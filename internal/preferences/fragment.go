package preferences

import (
	"errors"
	"strings"
)

// ErrClipboardUnavailable is returned by clipboards that cannot be written
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// FragmentSource yields the fragment of the URL the planner was opened with
type FragmentSource interface {
	Fragment() (string, bool)
}

// Clipboard receives share links
type Clipboard interface {
	WriteText(text string) error
}

// URLFragment extracts the raw fragment from a link. The fragment is kept
// percent-encoded so escaped separators survive until DecodeToken.
type URLFragment string

// Fragment returns everything after the first '#'
func (u URLFragment) Fragment() (string, bool) {
	_, fragment, found := strings.Cut(string(u), "#")
	if !found || fragment == "" {
		return "", false
	}
	return fragment, true
}

// NoFragment is a FragmentSource without payload
type NoFragment struct{}

func (NoFragment) Fragment() (string, bool) {
	return "", false
}

// Share builds the share link and tries to copy it. When the clipboard is
// missing or fails, the link is returned for manual copying with copied=false.
func Share(ids []string, origin, path string, clip Clipboard) (link string, copied bool) {
	link = BuildShareURL(ids, origin, path)
	if clip == nil {
		return link, false
	}
	if err := clip.WriteText(link); err != nil {
		return link, false
	}
	return link, true
}
