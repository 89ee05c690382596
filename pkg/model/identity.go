package model

import (
	"strconv"
	"strings"
)

// ID is the canonical identifier used to look tasks up. Lookups compare IDs
// with plain equality.
type ID string

const serverPrefix = "server-"

// ServerID returns the canonical ID of a task linked to the given remote id.
func ServerID(remote int64) ID {
	return ID(serverPrefix + strconv.FormatInt(remote, 10))
}

// RemoteID extracts the numeric remote id from a server-linked ID.
func (id ID) RemoteID() (int64, bool) {
	s, ok := strings.CutPrefix(string(id), serverPrefix)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SyncState tells whether a task only exists locally or has a remote twin.
type SyncState int

const (
	LocalOnly SyncState = iota
	ServerLinked
)

func (s SyncState) String() string {
	if s == ServerLinked {
		return "server-linked"
	}
	return "local-only"
}

// Identity is the tagged identity of a task. Remote is zero while the task is
// local-only. Local is the id the task was created with and is kept after
// linking; it may be empty for tasks that were imported already linked.
type Identity struct {
	Local  string
	Remote int64
}

// LocalIdentity returns a local-only identity.
func LocalIdentity(local string) Identity {
	return Identity{Local: local}
}

// ParseIdentity rebuilds an identity from its persisted form: the canonical
// id and, for linked tasks, the original local id.
func ParseIdentity(raw string, local string) Identity {
	if remote, ok := ID(raw).RemoteID(); ok {
		return Identity{Local: local, Remote: remote}
	}
	return Identity{Local: raw}
}

func (i Identity) State() SyncState {
	if i.Remote > 0 {
		return ServerLinked
	}
	return LocalOnly
}

func (i Identity) Linked() bool {
	return i.State() == ServerLinked
}

func (i Identity) ID() ID {
	if i.Linked() {
		return ServerID(i.Remote)
	}
	return ID(i.Local)
}

// Link returns the server-linked form of the identity.
func (i Identity) Link(remote int64) Identity {
	return Identity{Local: i.Local, Remote: remote}
}
