// Package splitter demultiplexes one token stream into a chat channel and a
// content channel, delimited by a fixed opening/closing tag pair. The tag
// literals are agreed with the upstream producer, never inferred from the
// text, and may arrive split across any chunk boundary.
package splitter

import "strings"

// Phase is the current position of the splitter relative to the tag pair.
type Phase string

const (
	PhaseBefore  Phase = "before"  // matching the opening tag, flushing to chat
	PhaseContent Phase = "content" // matching the closing tag, flushing to content
	PhaseAfter   Phase = "after"   // everything goes to chat verbatim
)

// Default tag pair used by the lyric rewrite stream.
const (
	DefaultOpenTag  = "<content>"
	DefaultCloseTag = "</content>"
)

// Splitter is a three-phase state machine over a token stream. Identical
// input produces identical output regardless of how it is chunked: all
// matching state lives in tagBuf, which never grows past the active tag.
type Splitter struct {
	openTag  string
	closeTag string

	phase          Phase
	tagBuf         []byte
	atContentStart bool // next content byte is the first since the opening tag

	chat    strings.Builder
	content strings.Builder
}

// New creates a splitter for the given tag pair. Empty tags fall back to the
// defaults.
func New(openTag, closeTag string) *Splitter {
	if openTag == "" {
		openTag = DefaultOpenTag
	}
	if closeTag == "" {
		closeTag = DefaultCloseTag
	}
	return &Splitter{
		openTag:  openTag,
		closeTag: closeTag,
		phase:    PhaseBefore,
		tagBuf:   make([]byte, 0, len(closeTag)),
	}
}

// ProcessToken feeds one token and returns the text newly routed to each
// channel by this call.
func (s *Splitter) ProcessToken(text string) (chatDelta, contentDelta string) {
	var chat, content []byte

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch s.phase {
		case PhaseBefore:
			if s.match(c, s.openTag, &chat) {
				s.phase = PhaseContent
				s.atContentStart = true
			}
		case PhaseContent:
			if s.atContentStart {
				s.atContentStart = false
				if c == '\n' {
					// One conventional newline after the opening tag is absorbed.
					continue
				}
			}
			if s.match(c, s.closeTag, &content) {
				s.phase = PhaseAfter
			}
		case PhaseAfter:
			chat = append(chat, c)
		}
	}

	s.chat.Write(chat)
	s.content.Write(content)
	return string(chat), string(content)
}

// match buffers c against tag as a literal prefix. On a full match it clears
// the buffer and reports true. On a mismatch the buffered bytes are replayed
// one at a time: each is flushed unless the remaining buffer restarts a
// valid prefix (a byte that breaks one match may begin another).
func (s *Splitter) match(c byte, tag string, out *[]byte) bool {
	s.tagBuf = append(s.tagBuf, c)
	for len(s.tagBuf) > 0 {
		if len(s.tagBuf) == len(tag) && string(s.tagBuf) == tag {
			s.tagBuf = s.tagBuf[:0]
			return true
		}
		if strings.HasPrefix(tag, string(s.tagBuf)) {
			return false
		}
		*out = append(*out, s.tagBuf[0])
		s.tagBuf = s.tagBuf[1:]
	}
	return false
}

// ChatText returns the cumulative chat channel.
func (s *Splitter) ChatText() string { return s.chat.String() }

// ContentText returns the cumulative content channel.
func (s *Splitter) ContentText() string { return s.content.String() }

// Phase returns the current phase.
func (s *Splitter) Phase() Phase { return s.phase }
