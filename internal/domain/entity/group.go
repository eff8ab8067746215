// Package entity holds the domain types shared by the scanner: group ids,
// group records fetched from the remote API, and their validation rules.
package entity

import (
	"sort"
	"strconv"
	"time"
)

// GroupID is the canonical identifier of a remote group: a non-empty run of digits.
type GroupID string

// ParseGroupID validates s as a canonical group id.
// Unlike ExtractGroupID it does not search free-form text.
func ParseGroupID(s string) (GroupID, error) {
	if !isDigits(s) {
		return "", ErrInvalidGroupID
	}
	return GroupID(s), nil
}

// String implements fmt.Stringer.
func (id GroupID) String() string { return string(id) }

// Valid reports whether id is a non-empty string of digits.
func (id GroupID) Valid() bool { return isDigits(string(id)) }

// Less orders ids numerically. Ids of different lengths compare by length first,
// which matches numeric order for digit strings without leading zeros.
func (id GroupID) Less(other GroupID) bool {
	if len(id) != len(other) {
		return len(id) < len(other)
	}
	return id < other
}

// SortGroupIDs sorts ids in place in numeric order.
func SortGroupIDs(ids []GroupID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Owner is the owning user of a group as reported by the remote API.
type Owner struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Name returns the most descriptive name available for the owner.
func (o *Owner) Name() string {
	if o == nil {
		return ""
	}
	if o.DisplayName != "" {
		return o.DisplayName
	}
	if o.Username != "" {
		return o.Username
	}
	if o.UserID != 0 {
		return strconv.FormatInt(o.UserID, 10)
	}
	return ""
}

// GroupRecord is a snapshot of a group fetched during a scan. It is never persisted.
type GroupRecord struct {
	ID                 GroupID
	Name               string
	Description        string
	Owner              *Owner
	PublicEntryAllowed bool
	MemberCount        int64
	CheckedAt          time.Time
}

// Unclaimed reports whether the group has no owner.
func (g *GroupRecord) Unclaimed() bool {
	return g != nil && g.Owner == nil
}
