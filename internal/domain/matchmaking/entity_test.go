package matchmaking

import (
	"testing"

	"github.com/google/uuid"
)

func entry(mode string, ownAge, minAge, maxAge int, interests ...string) *QueueEntry {
	return &QueueEntry{
		ID:         uuid.New(),
		ActorID:    uuid.New(),
		LookingFor: mode,
		OwnAge:     ownAge,
		MinAge:     minAge,
		MaxAge:     maxAge,
		Interests:  interests,
	}
}

func TestCompatibleModes(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{ModeText, ModeText, true},
		{ModeVideo, ModeVideo, true},
		{ModeText, ModeVideo, false},
		{ModeBoth, ModeText, true},
		{ModeBoth, ModeVideo, true},
		{ModeBoth, ModeBoth, true},
	}

	for _, tt := range tests {
		a := entry(tt.a, 0, 0, 0)
		b := entry(tt.b, 0, 0, 0)
		if got := Compatible(a, b); got != tt.want {
			t.Errorf("Compatible(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompatibleAgeRange(t *testing.T) {
	// No filter on either side always matches.
	if !Compatible(entry(ModeBoth, 0, 0, 0), entry(ModeBoth, 0, 0, 0)) {
		t.Error("unfiltered entries should match")
	}

	// Seeker wants 20-30; partner is 25 with no filter of their own.
	if !Compatible(entry(ModeBoth, 40, 20, 30), entry(ModeBoth, 25, 0, 0)) {
		t.Error("partner inside range should match")
	}

	// Partner outside the range.
	if Compatible(entry(ModeBoth, 40, 20, 30), entry(ModeBoth, 35, 0, 0)) {
		t.Error("partner above range should not match")
	}
	if Compatible(entry(ModeBoth, 40, 20, 30), entry(ModeBoth, 18, 0, 0)) {
		t.Error("partner below range should not match")
	}

	// A filtered seeker never matches a partner without a stated age.
	if Compatible(entry(ModeBoth, 40, 20, 30), entry(ModeBoth, 0, 0, 0)) {
		t.Error("ageless partner should not satisfy an age filter")
	}

	// The filter must hold in both directions.
	if Compatible(entry(ModeBoth, 50, 20, 30), entry(ModeBoth, 25, 18, 30)) {
		t.Error("seeker outside partner's range should not match")
	}

	// Open-ended minimum only.
	if !Compatible(entry(ModeBoth, 40, 18, 0), entry(ModeBoth, 70, 0, 0)) {
		t.Error("min-only filter should accept any age above it")
	}
}

func TestCompatibleSelf(t *testing.T) {
	a := entry(ModeBoth, 0, 0, 0)
	b := &QueueEntry{ID: uuid.New(), ActorID: a.ActorID, LookingFor: ModeBoth}
	if Compatible(a, b) {
		t.Error("an actor must not match itself")
	}
}

func TestMatchScore(t *testing.T) {
	a := entry(ModeBoth, 0, 0, 0, "music", "films", "hiking")
	b := entry(ModeBoth, 0, 0, 0, "music", "hiking", "cooking")

	score, shared := MatchScore(a, b)
	// shared = {music, hiking}, union = {music, films, hiking, cooking}
	if want := 0.5; score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
	if len(shared) != 2 {
		t.Errorf("shared = %v, want 2 entries", shared)
	}
}

func TestMatchScoreEmptySets(t *testing.T) {
	score, shared := MatchScore(entry(ModeBoth, 0, 0, 0), entry(ModeBoth, 0, 0, 0))
	if score != 0 || shared != nil {
		t.Errorf("empty interest sets should score zero, got %v %v", score, shared)
	}

	// Interests are soft: empty sets still pair.
	if !Compatible(entry(ModeBoth, 0, 0, 0), entry(ModeBoth, 0, 0, 0)) {
		t.Error("empty interest sets should still be compatible")
	}
}
