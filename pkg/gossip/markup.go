package gossip

import "strings"

// StripMarkup removes client escape sequences from s: texture tags
// (|T...|t), hyperlinks (|H...|h), color starts (|cAARRGGBB) and resets (|r).
// The visible text inside a hyperlink is kept.
func StripMarkup(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '|' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'T':
			end := strings.Index(s[i+2:], "|t")
			if end < 0 {
				return sb.String()
			}
			i += 2 + end + 1
		case 'H':
			end := strings.Index(s[i+2:], "|h")
			if end < 0 {
				return sb.String()
			}
			i += 2 + end + 1
		case 'h', 'r':
			i++
		case 'c':
			i += 1 + 8
		case '|':
			sb.WriteByte('|')
			i++
		default:
			sb.WriteByte(s[i])
		}
	}
	return strings.TrimSpace(sb.String())
}
