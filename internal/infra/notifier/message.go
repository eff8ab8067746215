package notifier

import (
	"strconv"
	"strings"
	"time"

	"groupwatch/internal/domain/entity"
)

const (
	// DefaultGroupURLTemplate builds the public page link; {id} is replaced by the group id.
	DefaultGroupURLTemplate = "https://www.roblox.com/groups/{id}"

	// MaxDescriptionLength bounds the description carried by every alert.
	MaxDescriptionLength = 190

	maxTitleLength   = 256
	truncationSuffix = "..."
	noDescription    = "No description"
)

// Field is a labelled value shown alongside an alert.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Message is the channel-neutral alert for one unclaimed group.
type Message struct {
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	GroupID     entity.GroupID `json:"group_id"`
	GroupName   string         `json:"group_name"`
	Description string         `json:"description"`
	Fields      []Field        `json:"fields"`
	Timestamp   time.Time      `json:"checked_at"`
}

// GroupURL renders template for id. An empty template uses DefaultGroupURLTemplate.
func GroupURL(template string, id entity.GroupID) string {
	if template == "" {
		template = DefaultGroupURLTemplate
	}
	return strings.ReplaceAll(template, "{id}", string(id))
}

// NewMessage builds the alert for record. The timestamp is the record's check
// time in UTC, falling back to now when the record carries none.
func NewMessage(record *entity.GroupRecord, urlTemplate string) Message {
	title := "Unclaimed group found"
	if record.Name != "" {
		title += ": " + record.Name
	}

	description := strings.TrimSpace(record.Description)
	if description == "" {
		description = noDescription
	}

	owner := "none (unclaimed)"
	if record.Owner != nil {
		owner = record.Owner.Name()
	}
	entry := "no"
	if record.PublicEntryAllowed {
		entry = "yes"
	}

	fields := []Field{
		{Name: "Group ID", Value: string(record.ID), Inline: true},
		{Name: "Owner", Value: owner, Inline: true},
		{Name: "Public entry", Value: entry, Inline: true},
	}
	if record.MemberCount > 0 {
		fields = append(fields, Field{Name: "Members", Value: strconv.FormatInt(record.MemberCount, 10), Inline: true})
	}

	ts := record.CheckedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return Message{
		Title:       truncateText(title, maxTitleLength, ""),
		URL:         GroupURL(urlTemplate, record.ID),
		GroupID:     record.ID,
		GroupName:   record.Name,
		Description: truncateText(description, MaxDescriptionLength, truncationSuffix),
		Fields:      fields,
		Timestamp:   ts.UTC(),
	}
}
