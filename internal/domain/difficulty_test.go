package domain

import "testing"

func TestClassifyDifficulty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		hints []string
		want  Difficulty
	}{
		{"no hints", nil, DifficultyUnknown},
		{"primary wins", []string{"四级", "雅思"}, DifficultyIntermediate},
		{"falls back to secondary", []string{"", "高阶"}, DifficultyAdvanced},
		{"unknown primary then known secondary", []string{"未知", "考研"}, DifficultyUpperIntermediate},
		{"trimmed", []string{" 高考 "}, DifficultyInitial},
		{"nothing matches", []string{"foo", "bar"}, DifficultyUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyDifficulty(tc.hints...); got != tc.want {
				t.Fatalf("ClassifyDifficulty(%v) = %s, want %s", tc.hints, got, tc.want)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	if got := ParseDifficulty("upper-intermediate"); got != DifficultyUpperIntermediate {
		t.Fatalf("unexpected tier: %s", got)
	}
	if got := ParseDifficulty(" Advanced\n"); got != DifficultyAdvanced {
		t.Fatalf("unexpected tier: %s", got)
	}
	if got := ParseDifficulty("CET-4"); got != DifficultyUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestParagraphState(t *testing.T) {
	t.Parallel()

	ref := "audio/1/1_1.mp3"
	p := Paragraph{Content: "Hello.", Translation: &Translation{}, AudioRef: &ref}
	if p.State(StageTranslation) != Done {
		t.Fatal("empty translation payload should still be done")
	}
	if p.State(StageSyntax) != NotStarted {
		t.Fatal("nil syntax should be not started")
	}
	if p.FullyEnriched() {
		t.Fatal("paragraph should not be fully enriched")
	}

	p.Syntax = &Syntax{}
	p.Vocabulary = TokenSequence{}
	if !p.FullyEnriched() {
		t.Fatal("expected fully enriched once every field is set")
	}
}
