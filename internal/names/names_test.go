package names

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"my name is", "my name is Sam", "Sam", true},
		{"lowercase normalized", "my name is sAMANTHA", "Samantha", true},
		{"i am", "Hi, I am alex", "Alex", true},
		{"i'm", "i'm JORDAN by the way", "Jordan", true},
		{"call me", "you can call me riley", "Riley", true},
		{"blocklisted name", "my name is Sad", "", false},
		{"blocklisted state", "I am stressed", "", false},
		{"blocked then next pattern", "I am sad, call me Bob", "Bob", true},
		{"first pattern wins", "my name is Ana and I'm Bea", "Ana", true},
		{"no match", "what games do you like", "", false},
		{"word inside another word", "miami amber", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Extract(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsBlocked_CaseInsensitive(t *testing.T) {
	for _, w := range []string{"OK", "Fine", "ANXIOUS", "depressed"} {
		if !IsBlocked(w) {
			t.Errorf("expected %q to be blocked", w)
		}
	}
	if IsBlocked("Sam") {
		t.Error("Sam should not be blocked")
	}
}
