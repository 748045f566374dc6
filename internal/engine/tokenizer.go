package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// 通用停用词，冠词/代词/助动词等噪声
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "please": {},
	"can": {}, "you": {}, "i": {}, "we": {}, "do": {}, "does": {}, "me": {}, "my": {},
	"your": {}, "it": {}, "that": {}, "this": {}, "for": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "by": {}, "with": {}, "from": {}, "about": {}, "as": {}, "be": {},
}

func isStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

// Tokenize 把原始文本清洗为标准化 token 序列：
// NFKD 归一、转小写、非字母数字替换为空格后切分、去停用词。
// 空文本或纯标点返回空序列，不报错。
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	text = norm.NFKD.String(text)
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case unicode.Is(unicode.Mn, r):
			// NFKD 拆出来的组合附标直接丢弃，不能当分隔符
			return -1
		default:
			return ' '
		}
	}, text)

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if isStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenSet 序列转集合，给不关心顺序的比较用
func TokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
