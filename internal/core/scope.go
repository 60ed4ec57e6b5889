package core

// Scope partitions transactions: a personal scope holds one owner's records
// without a group, a group scope holds every record of one group. The zero
// Scope matches everything.
type Scope struct {
	OwnerID string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

func PersonalScope(ownerID string) Scope { return Scope{OwnerID: ownerID} }

func GroupScope(groupID string) Scope { return Scope{GroupID: groupID} }

func (s Scope) IsGroup() bool { return s.GroupID != "" }

func (s Scope) IsZero() bool { return s.OwnerID == "" && s.GroupID == "" }

// Key identifies the scope in maps, logs and archives.
func (s Scope) Key() string {
	switch {
	case s.GroupID != "":
		return "group:" + s.GroupID
	case s.OwnerID != "":
		return "user:" + s.OwnerID
	default:
		return "all"
	}
}

func (s Scope) String() string { return s.Key() }

// Contains reports whether t belongs to the scope.
func (s Scope) Contains(t Transaction) bool {
	switch {
	case s.GroupID != "":
		return t.GroupRef == s.GroupID
	case s.OwnerID != "":
		return t.OwnerRef == s.OwnerID && t.GroupRef == ""
	default:
		return true
	}
}

func (s Scope) Validate() error {
	if s.IsZero() {
		return ErrInvalidScope
	}
	return nil
}
