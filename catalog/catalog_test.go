package catalog

import (
	"reflect"
	"testing"
)

func TestSuggest(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"empty prefix", "", []string{}},
		{"single character", "d", []string{}},
		{"lower case prefix", "do", []string{"DOLIPRANE"}},
		{"mixed case prefix", "La", []string{"LANTUS", "LAROXYL", "LASILIX"}},
		{"several matches in catalog order", "in", []string{"INEXIUM", "INSULATARD"}},
		{"no match", "zz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Suggest(tt.prefix)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Suggest(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestNewSortsEntries(t *testing.T) {
	c := New([]string{"ZOLOFT", "AMOXIL", "MAALOX"})

	got := c.Suggest("am")
	if !reflect.DeepEqual(got, []string{"AMOXIL"}) {
		t.Errorf("Expected [AMOXIL], got %v", got)
	}
	if c.entries[0] != "AMOXIL" || c.entries[2] != "ZOLOFT" {
		t.Errorf("Expected alphabetical order, got %v", c.entries)
	}
	if c.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", c.Len())
	}
}
