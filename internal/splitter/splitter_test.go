package splitter

import (
	"math/rand"
	"testing"
)

func feed(s *Splitter, tokens ...string) {
	for _, tok := range tokens {
		s.ProcessToken(tok)
	}
}

func TestScenarioSingleToken(t *testing.T) {
	s := New("", "")
	s.ProcessToken("<content>\nVerse 1\nLine 2\n</content>Here is the summary")

	if got := s.ContentText(); got != "Verse 1\nLine 2\n" {
		t.Errorf("content = %q, want %q", got, "Verse 1\nLine 2\n")
	}
	if got := s.ChatText(); got != "Here is the summary" {
		t.Errorf("chat = %q, want %q", got, "Here is the summary")
	}
	if got := s.Phase(); got != PhaseAfter {
		t.Errorf("phase = %q, want %q", got, PhaseAfter)
	}
}

func TestScenarioTagSplitAcrossTokens(t *testing.T) {
	s := New("", "")

	chat, content := s.ProcessToken("<con")
	if chat != "" || content != "" {
		t.Errorf("first call output = (%q, %q), want none", chat, content)
	}

	s.ProcessToken("tent>")
	if got := s.Phase(); got != PhaseContent {
		t.Errorf("phase = %q, want %q", got, PhaseContent)
	}
}

func TestScenarioLeadingNewlineStripped(t *testing.T) {
	s := New("", "")
	s.ProcessToken("<content>")
	_, content := s.ProcessToken("\nFirst line")
	if content != "First line" {
		t.Errorf("contentDelta = %q, want %q", content, "First line")
	}
}

func TestLeadingNewlineOnlyStrippedOnce(t *testing.T) {
	s := New("", "")
	s.ProcessToken("<content>\n\nFirst line")
	if got := s.ContentText(); got != "\nFirst line" {
		t.Errorf("content = %q, want %q (only one newline absorbed)", got, "\nFirst line")
	}
}

func TestNonNewlineFirstContentCharKept(t *testing.T) {
	s := New("", "")
	s.ProcessToken("<content>First")
	if got := s.ContentText(); got != "First" {
		t.Errorf("content = %q, want %q", got, "First")
	}
}

func TestChatBeforeAndAfterTags(t *testing.T) {
	s := New("", "")
	s.ProcessToken("Sure! <content>\nLyrics here</content> Hope you like it.")

	if got := s.ChatText(); got != "Sure!  Hope you like it." {
		t.Errorf("chat = %q", got)
	}
	if got := s.ContentText(); got != "Lyrics here" {
		t.Errorf("content = %q", got)
	}
}

func TestPartialMatchThatTurnsOutWrong(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantChat string
	}{
		{name: "angle bracket in prose", input: "a < b and a <c> too", wantChat: "a < b and a <c> too"},
		{name: "mismatch mid-tag", input: "<contempt is not a tag", wantChat: "<contempt is not a tag"},
		{name: "breaking char restarts a match", input: "x<<content>\nin</content>", wantChat: "x<"},
		{name: "repeated prefix", input: "<con<con<content>\nin</content>", wantChat: "<con<con"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("", "")
			s.ProcessToken(tt.input)
			if got := s.ChatText(); got != tt.wantChat {
				t.Errorf("chat = %q, want %q", got, tt.wantChat)
			}
		})
	}
}

func TestCloseTagPrefixInsideContent(t *testing.T) {
	s := New("", "")
	s.ProcessToken("<content>\nA </chord> is not the close tag</content>")
	if got := s.ContentText(); got != "A </chord> is not the close tag" {
		t.Errorf("content = %q", got)
	}
	if got := s.Phase(); got != PhaseAfter {
		t.Errorf("phase = %q, want %q", got, PhaseAfter)
	}
}

func TestDeterminismUnderRechunking(t *testing.T) {
	input := "I rewrote it! <content>\nVerse 1: la la\n<chorus> la </chorus>\n</content> Want another < pass?"

	whole := New("", "")
	whole.ProcessToken(input)

	// One byte at a time.
	perByte := New("", "")
	for i := 0; i < len(input); i++ {
		perByte.ProcessToken(input[i : i+1])
	}

	// Random boundaries, fixed seed for reproducibility.
	rng := rand.New(rand.NewSource(7))
	random := New("", "")
	for rest := input; len(rest) > 0; {
		n := 1 + rng.Intn(len(rest))
		random.ProcessToken(rest[:n])
		rest = rest[n:]
	}

	for name, s := range map[string]*Splitter{"per-byte": perByte, "random": random} {
		if s.ChatText() != whole.ChatText() {
			t.Errorf("%s chat = %q, want %q", name, s.ChatText(), whole.ChatText())
		}
		if s.ContentText() != whole.ContentText() {
			t.Errorf("%s content = %q, want %q", name, s.ContentText(), whole.ContentText())
		}
		if s.Phase() != whole.Phase() {
			t.Errorf("%s phase = %q, want %q", name, s.Phase(), whole.Phase())
		}
	}
}

func TestReconstruction(t *testing.T) {
	// chat-before + open tag + stripped newline + content + close tag +
	// chat-after reproduces the original input.
	chatBefore := "Here you go: "
	content := "Verse 1\nVerse 2\n"
	chatAfter := " Anything else?"
	input := chatBefore + DefaultOpenTag + "\n" + content + DefaultCloseTag + chatAfter

	s := New("", "")
	s.ProcessToken(input)

	rebuilt := s.chatBeforeTag(chatBefore) + DefaultOpenTag + "\n" + s.ContentText() + DefaultCloseTag + s.chatAfterTag(chatBefore)
	if rebuilt != input {
		t.Errorf("reconstruction = %q, want %q", rebuilt, input)
	}
}

// chatBeforeTag and chatAfterTag slice the cumulative chat channel around the
// known before-tag prefix for the reconstruction check.
func (s *Splitter) chatBeforeTag(prefix string) string { return s.ChatText()[:len(prefix)] }
func (s *Splitter) chatAfterTag(prefix string) string  { return s.ChatText()[len(prefix):] }

func TestCustomTagPair(t *testing.T) {
	s := New("[[begin]]", "[[end]]")
	s.ProcessToken("intro [[begin]]\npayload[[end]]outro")
	if got := s.ContentText(); got != "payload" {
		t.Errorf("content = %q", got)
	}
	if got := s.ChatText(); got != "intro outro" {
		t.Errorf("chat = %q", got)
	}
}

func TestEmptyTokens(t *testing.T) {
	s := New("", "")
	feed(s, "", "<content>", "", "\nX", "", "</content>", "")
	if got := s.ContentText(); got != "X" {
		t.Errorf("content = %q, want %q", got, "X")
	}
	if got := s.Phase(); got != PhaseAfter {
		t.Errorf("phase = %q", got)
	}
}
