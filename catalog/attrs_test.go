package catalog

import (
	"testing"
	"time"
)

type userRecord struct {
	Email   string    `attr:"user/email"`
	Age     int64     `attr:"user/age"`
	Active  bool      `attr:"user/active"`
	Score   float64   `attr:"user/score"`
	Tags    []string  `attr:"user/tags"`
	Joined  time.Time `attr:"user/joined"`
	Note    string    `attr:"user/note,omitempty"`
	Ignored string    `attr:"-"`
}

func TestScan(t *testing.T) {
	m := map[string]any{
		"user/email":  "a@x.com",
		"user/age":    float64(34), // JSON numbers arrive as float64
		"user/active": true,
		"user/score":  1.5,
		"user/tags":   []any{"staff", "beta"},
		"user/joined": "2024-03-01T12:00:00Z",
	}

	var u userRecord
	Scan(m, &u)

	if u.Email != "a@x.com" {
		t.Errorf("Email = %q", u.Email)
	}
	if u.Age != 34 {
		t.Errorf("Age = %d, want 34", u.Age)
	}
	if !u.Active {
		t.Error("Active = false, want true")
	}
	if u.Score != 1.5 {
		t.Errorf("Score = %v, want 1.5", u.Score)
	}
	if len(u.Tags) != 2 || u.Tags[0] != "staff" {
		t.Errorf("Tags = %v", u.Tags)
	}
	if u.Joined.IsZero() {
		t.Error("Joined not parsed from RFC 3339 string")
	}
}

func TestScanNilMap(t *testing.T) {
	var u userRecord
	Scan(nil, &u) // must not panic
	if u.Email != "" {
		t.Error("Scan(nil) modified struct")
	}
}

func TestScanNonPointer(t *testing.T) {
	var u userRecord
	Scan(map[string]any{"user/email": "x"}, u) // silently ignored
	if u.Email != "" {
		t.Error("Scan with non-pointer modified struct")
	}
}

func TestFrom(t *testing.T) {
	u := userRecord{Email: "a@x.com", Age: 34, Tags: []string{"staff"}}

	m := From(u)
	if m["user/email"] != "a@x.com" {
		t.Errorf("user/email = %v", m["user/email"])
	}
	if m["user/age"] != int64(34) {
		t.Errorf("user/age = %v", m["user/age"])
	}

	// omitempty on zero value
	if _, ok := m["user/note"]; ok {
		t.Error("user/note present, want omitted")
	}
	// untagged/ignored fields never serialize
	if _, ok := m["-"]; ok {
		t.Error("ignored field serialized")
	}
}

func TestScanFromRoundTrip(t *testing.T) {
	u := userRecord{Email: "b@x.com", Age: 7, Active: true, Note: "hello"}

	var got userRecord
	Scan(From(u), &got)

	if got.Email != u.Email || got.Age != u.Age || got.Active != u.Active || got.Note != u.Note {
		t.Errorf("round trip = %+v, want %+v", got, u)
	}
}
