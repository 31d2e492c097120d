package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const sessionIDPrefix = "session_"

// NewSessionID returns an id of the form session_<unix millis>_<suffix>.
// The embedded timestamp orders sessions by creation without reading them.
func NewSessionID(now Timestamp) SessionID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return SessionID(fmt.Sprintf("%s%d_%s", sessionIDPrefix, now.UnixMilli(), suffix))
}

func NewTopicID() TopicID {
	return TopicID("topic_" + uuid.NewString())
}

func NewMessageID() MessageID {
	return MessageID("msg_" + uuid.NewString())
}

// SessionCreatedMillis extracts the creation timestamp embedded in a session id.
func SessionCreatedMillis(id SessionID) (int64, bool) {
	rest, ok := strings.CutPrefix(string(id), sessionIDPrefix)
	if !ok {
		return 0, false
	}
	millis, _, _ := strings.Cut(rest, "_")
	v, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NewerSession reports whether a should be listed before b: the id-embedded
// creation time decides first, UpdatedAt breaks ties.
func NewerSession(a, b SessionSummary) bool {
	am, aok := SessionCreatedMillis(a.ID)
	bm, bok := SessionCreatedMillis(b.ID)
	if aok && bok && am != bm {
		return am > bm
	}
	if aok != bok {
		return aok
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

// IsSafeID reports whether id can be used as a single path or key segment.
func IsSafeID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}
