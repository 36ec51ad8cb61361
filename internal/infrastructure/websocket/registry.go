package websocket

import (
	"encoding/json"
	"sort"
	"sync"

	"caselink/pkg/logger"
)

// GroupRegistry maintains, per group key, the set of live sessions subscribed
// to it. It is shared by every connection in the process.
type GroupRegistry struct {
	mu     sync.RWMutex
	groups map[string]map[*Session]struct{}
}

func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{
		groups: make(map[string]map[*Session]struct{}),
	}
}

// DirectGroupKey names the broadcast group for a participant pair. Both sides
// compute the identical key regardless of who initiated the connection.
func DirectGroupKey(userID1, userID2 string) string {
	ids := []string{userID1, userID2}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// CaseGroupKey names the broadcast group for a case-scoped thread.
func CaseGroupKey(caseID string) string {
	return "case_" + caseID
}

// Join is idempotent; re-adding a present session is a no-op.
func (r *GroupRegistry) Join(groupKey string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[groupKey]
	if !ok {
		members = make(map[*Session]struct{})
		r.groups[groupKey] = members
	}
	members[s] = struct{}{}
}

// Leave removes the session. Absent sessions are ignored; disconnect races
// are expected. The group entry is pruned when its last member leaves.
func (r *GroupRegistry) Leave(groupKey string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[groupKey]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(r.groups, groupKey)
	}
}

// Broadcast delivers the event to every session currently in the group. The
// member set is snapshotted under the lock and delivery happens outside it,
// so a slow receiver never blocks joins or leaves. A failed delivery to one
// session is logged and does not abort delivery to the rest.
func (r *GroupRegistry) Broadcast(groupKey string, event ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("registry: failed to marshal event for group %s: %v", groupKey, err)
		return
	}

	r.mu.RLock()
	members := make([]*Session, 0, len(r.groups[groupKey]))
	for s := range r.groups[groupKey] {
		members = append(members, s)
	}
	r.mu.RUnlock()

	for _, s := range members {
		if !s.enqueue(payload) {
			logger.Warn("registry: dropped event for session %s in group %s", s.UserID(), groupKey)
		}
	}
}

// MemberCount reports the current size of a group.
func (r *GroupRegistry) MemberCount(groupKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[groupKey])
}

// GroupCount reports how many groups currently have members.
func (r *GroupRegistry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
