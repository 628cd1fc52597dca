package wishlist

import (
	"fmt"
	"strings"

	"github.com/tinyland-inc/wishbot/pkg/store"
)

// MaxChunkLen bounds one listing message, in runes. Renderings longer
// than this are split; the chunks concatenate back to the full text.
const MaxChunkLen = 3800

// EmptyListMessage is sent instead of an empty listing.
const EmptyListMessage = "The wishlist is empty so far."

// Formatter renders the item set into paginated text.
type Formatter struct {
	maxLen int
}

func NewFormatter() *Formatter {
	return &Formatter{maxLen: MaxChunkLen}
}

// Render produces the full listing: items numbered in listing order
// with contributor, description, and claim status.
func (f *Formatter) Render(items []*store.Item) string {
	if len(items) == 0 {
		return EmptyListMessage
	}

	var b strings.Builder
	b.WriteString("🎁 Wishlist:\n\n")
	for i, item := range items {
		status := "unclaimed ❌"
		if item.Claimed {
			status = "claimed ✅"
		}
		fmt.Fprintf(&b, "%d. %s: %s — %s", i+1, item.Contributor, item.Description, status)
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Chunks splits text into pieces of at most maxLen runes each. Splitting
// by runes keeps multi-byte characters intact; the ordered concatenation
// of the chunks equals text exactly.
func (f *Formatter) Chunks(text string) []string {
	runes := []rune(text)
	if len(runes) <= f.maxLen {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += f.maxLen {
		end := start + f.maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
