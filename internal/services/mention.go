package services

const (
	minMentionLength = 3
	maxMentionLength = 150
)

// ExtractMentions returns the distinct @username tokens in text, in order of
// first appearance. A token is "@" followed by 3 to 150 ASCII word characters,
// and the "@" must start the text or follow a non-word character, so
// "admin@site" yields nothing. Longer runs are cut at 150 characters.
func ExtractMentions(text string) []string {
	var mentions []string
	seen := make(map[string]struct{})

	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		if i > 0 && isWordByte(text[i-1]) {
			continue
		}

		start := i + 1
		end := start
		for end < len(text) && end-start < maxMentionLength && isWordByte(text[end]) {
			end++
		}
		if end-start < minMentionLength {
			continue
		}

		name := text[start:end]
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			mentions = append(mentions, name)
		}
		i = end - 1
	}
	return mentions
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
