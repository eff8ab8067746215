package notifier

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"groupwatch/internal/domain/entity"
)

func TestNewMessage(t *testing.T) {
	checked := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*60*60))
	record := &entity.GroupRecord{
		ID:                 "123456",
		Name:               "Builders",
		Description:        "A place to build",
		PublicEntryAllowed: true,
		MemberCount:        12,
		CheckedAt:          checked,
	}

	msg := NewMessage(record, "")

	if msg.Title != "Unclaimed group found: Builders" {
		t.Errorf("Title = %q", msg.Title)
	}
	if msg.URL != "https://www.roblox.com/groups/123456" {
		t.Errorf("URL = %q", msg.URL)
	}
	if msg.GroupID != "123456" {
		t.Errorf("GroupID = %q", msg.GroupID)
	}
	if msg.Description != "A place to build" {
		t.Errorf("Description = %q", msg.Description)
	}
	if msg.Timestamp.Location() != time.UTC || !msg.Timestamp.Equal(checked) {
		t.Errorf("Timestamp = %v, want %v in UTC", msg.Timestamp, checked)
	}

	want := map[string]string{
		"Group ID":     "123456",
		"Owner":        "none (unclaimed)",
		"Public entry": "yes",
		"Members":      "12",
	}
	if len(msg.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(msg.Fields), len(want))
	}
	for _, f := range msg.Fields {
		if want[f.Name] != f.Value {
			t.Errorf("field %q = %q, want %q", f.Name, f.Value, want[f.Name])
		}
	}
}

func TestNewMessage_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("é", 500)
	msg := NewMessage(&entity.GroupRecord{ID: "1", Description: long}, "")

	if n := utf8.RuneCountInString(msg.Description); n != MaxDescriptionLength {
		t.Errorf("description has %d runes, want %d", n, MaxDescriptionLength)
	}
	if !strings.HasSuffix(msg.Description, "...") {
		t.Errorf("expected truncation suffix, got %q", msg.Description[len(msg.Description)-10:])
	}
	if !utf8.ValidString(msg.Description) {
		t.Error("truncation split a multi-byte character")
	}
}

func TestNewMessage_Defaults(t *testing.T) {
	msg := NewMessage(&entity.GroupRecord{ID: "9"}, "https://example.test/g/{id}/about")

	if msg.Title != "Unclaimed group found" {
		t.Errorf("Title = %q", msg.Title)
	}
	if msg.Description != "No description" {
		t.Errorf("Description = %q", msg.Description)
	}
	if msg.URL != "https://example.test/g/9/about" {
		t.Errorf("URL = %q", msg.URL)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp fallback")
	}
	for _, f := range msg.Fields {
		if f.Name == "Members" {
			t.Error("Members field must be omitted when count is unknown")
		}
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		max    int
		suffix string
		want   string
	}{
		{"short", "abc", 5, "...", "abc"},
		{"exact", "abcde", 5, "...", "abcde"},
		{"cut", "abcdefgh", 5, "...", "ab..."},
		{"no suffix", "abcdefgh", 3, "", "abc"},
		{"suffix longer than max", "abcdefgh", 2, "...", "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateText(tt.text, tt.max, tt.suffix); got != tt.want {
				t.Errorf("truncateText() = %q, want %q", got, tt.want)
			}
		})
	}
}
