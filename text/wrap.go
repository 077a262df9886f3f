package text

import (
	"math"
	"strings"
	"unicode"
)

// measureFunc returns the advance width of s in (fractional) pixels.
type measureFunc func(s string) float64

// fitEpsilon absorbs float noise when a line is exactly as wide as the limit.
const fitEpsilon = 1e-6

// greedyWrap 按空白贪心折行：
//   - 折行处的空白被丢弃，段首空白保留（对应 pre-wrap）；
//   - 单个词宽于 limit 时按字符拆分，绝不截断；
//   - 显式 \n 强制换行，空行保留；末尾的 \n 不额外产生空行。
func greedyWrap(content string, limit float64, measure measureFunc) []string {
	if content == "" {
		return nil
	}
	fits := func(s string) bool { return measure(s) <= limit+fitEpsilon }

	var lines []string
	var cur strings.Builder
	pending := ""
	paraStart := true

	emit := func(force bool) {
		if cur.Len() == 0 && !force {
			return
		}
		lines = append(lines, cur.String())
		cur.Reset()
		pending = ""
	}

	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			emit(true)
			paraStart = true
			continue
		}
		if isSpaceToken(token) {
			if paraStart {
				cur.WriteString(token)
			} else if cur.Len() > 0 {
				pending += token
			}
			continue
		}
		paraStart = false

		candidate := cur.String() + pending + token
		if fits(candidate) {
			cur.Reset()
			cur.WriteString(candidate)
			pending = ""
			continue
		}
		if strings.TrimSpace(cur.String()) != "" {
			emit(false)
		} else {
			cur.Reset()
			pending = ""
		}
		if fits(token) {
			cur.WriteString(token)
			continue
		}
		chunks := splitTokenByWidth(token, fits)
		for i, chunk := range chunks {
			if i < len(chunks)-1 {
				lines = append(lines, chunk)
				continue
			}
			cur.WriteString(chunk)
		}
	}
	emit(false)
	return lines
}

func isSpaceToken(token string) bool {
	for _, r := range token {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return token != ""
}

// tokenizeContent 将文本切分为交替的空白/非空白片段，\n 单独成为一个 token，\r 被丢弃。
func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

// splitTokenByWidth breaks an overlong word into chunks that fit; a single
// rune wider than the limit still gets its own chunk.
func splitTokenByWidth(token string, fits func(string) bool) []string {
	var parts []string
	var chunk []rune
	for _, r := range token {
		next := append(chunk, r)
		if len(chunk) > 0 && !fits(string(next)) {
			parts = append(parts, string(chunk))
			chunk = []rune{r}
			continue
		}
		chunk = next
	}
	if len(chunk) > 0 {
		parts = append(parts, string(chunk))
	}
	return parts
}

// ceilPx converts a fractional width to whole pixels.
func ceilPx(w float64) int {
	return int(math.Ceil(w - fitEpsilon))
}
