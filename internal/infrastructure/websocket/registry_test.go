package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectGroupKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3_7", DirectGroupKey("3", "7"))
	assert.Equal(t, "3_7", DirectGroupKey("7", "3"))
	assert.Equal(t, DirectGroupKey("alice", "bob"), DirectGroupKey("bob", "alice"))
}

func TestCaseGroupKey(t *testing.T) {
	assert.Equal(t, "case_12", CaseGroupKey("12"))
}

func TestJoinIsIdempotent(t *testing.T) {
	registry := NewGroupRegistry()
	s := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)

	registry.Join("3_7", s)
	registry.Join("3_7", s)

	assert.Equal(t, 1, registry.MemberCount("3_7"))
}

func TestLeavePrunesEmptyGroup(t *testing.T) {
	registry := NewGroupRegistry()
	s := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)

	registry.Join("3_7", s)
	assert.Equal(t, 1, registry.GroupCount())

	registry.Leave("3_7", s)
	assert.Equal(t, 0, registry.MemberCount("3_7"))
	assert.Equal(t, 0, registry.GroupCount())
}

func TestLeaveUnknownSessionIsNoop(t *testing.T) {
	registry := NewGroupRegistry()
	s := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)

	registry.Leave("3_7", s)

	assert.Equal(t, 0, registry.GroupCount())
}

func TestBroadcastReachesEveryMember(t *testing.T) {
	registry := NewGroupRegistry()
	a := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)
	b := NewSession("7", "3", "3_7", newFakeConn(), registry, nil)
	a.Join()
	b.Join()

	event := ChatEvent{Sender: "alice", Receiver: "bob", Message: "hello"}
	registry.Broadcast("3_7", event)

	for _, s := range []*Session{a, b} {
		var got ChatEvent
		assert.NoError(t, json.Unmarshal(<-s.send, &got))
		assert.Equal(t, event, got)
	}
}

func TestBroadcastDoesNotLeakAcrossGroups(t *testing.T) {
	registry := NewGroupRegistry()
	a := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)
	c := NewSession("9", "5", "5_9", newFakeConn(), registry, nil)
	a.Join()
	c.Join()

	registry.Broadcast("3_7", ChatEvent{Sender: "alice", Receiver: "bob", Message: "hello"})

	assert.Len(t, a.send, 1)
	assert.Len(t, c.send, 0)
}

func TestRejoinAfterDisconnectReformsGroup(t *testing.T) {
	registry := NewGroupRegistry()
	a := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)
	b := NewSession("7", "3", "3_7", newFakeConn(), registry, nil)
	c := NewSession("5", "9", "5_9", newFakeConn(), registry, nil)
	a.Join()
	b.Join()
	c.Join()

	a.Close()
	assert.Equal(t, 1, registry.MemberCount("3_7"))

	// A reconnects with a fresh session and the group re-forms.
	a2 := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)
	a2.Join()
	assert.Equal(t, 2, registry.MemberCount("3_7"))

	event := ChatEvent{Sender: "bob", Receiver: "alice", Message: "welcome back"}
	registry.Broadcast("3_7", event)

	for _, s := range []*Session{a2, b} {
		var got ChatEvent
		assert.NoError(t, json.Unmarshal(<-s.send, &got))
		assert.Equal(t, event, got)
	}

	// The unrelated group saw nothing through all of it.
	assert.Len(t, c.send, 0)
}

func TestBroadcastSkipsClosedSession(t *testing.T) {
	registry := NewGroupRegistry()
	a := NewSession("3", "7", "3_7", newFakeConn(), registry, nil)
	b := NewSession("7", "3", "3_7", newFakeConn(), registry, nil)
	a.Join()
	b.Join()

	b.Close()
	registry.Broadcast("3_7", ChatEvent{Sender: "alice", Receiver: "bob", Message: "hello"})

	assert.Len(t, a.send, 1)
}
