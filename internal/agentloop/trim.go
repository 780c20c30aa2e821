package agentloop

import "github.com/delegant-go/deskagent/internal/deskagent"

// imageRetentionLimit is how many non-initial messages carrying an Image
// block may remain in the conversation before the oldest excess ones have
// their images stripped.
const imageRetentionLimit = 5

// trimHistory strips Image blocks (only) from the oldest excess
// image-carrying messages once the conversation has grown past 3 messages
// and more than imageRetentionLimit non-initial messages still carry an
// image. message[0] — the seeded task — and every ToolResult block are
// never touched. Text is never trimmed, so the accessibility listings in
// old screenshot ToolResults stay and the conversation's text keeps
// growing for the whole run.
func trimHistory(messages []deskagent.Message) {
	if len(messages) <= 3 {
		return
	}

	var imageIndices []int
	for i := 1; i < len(messages); i++ {
		if messages[i].HasImage() {
			imageIndices = append(imageIndices, i)
		}
	}

	if len(imageIndices) <= imageRetentionLimit {
		return
	}

	excess := len(imageIndices) - imageRetentionLimit
	for _, idx := range imageIndices[:excess] {
		stripImages(&messages[idx])
	}
}

func stripImages(m *deskagent.Message) {
	kept := m.Content[:0]
	for _, b := range m.Content {
		if b.Kind == deskagent.BlockImage {
			continue
		}
		kept = append(kept, b)
	}
	m.Content = kept
}
