package preprocess

import (
	"strings"
	"unicode"

	"github.com/leofalp/directchat/providers/ai"
)

// Language is a detected user language.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
	LanguageKorean   Language = "ko"
	LanguageRussian  Language = "ru"
	LanguageArabic   Language = "ar"
	LanguageHindi    Language = "hi"
)

// promptMarker opens every injected prompt so a second injection can be
// recognized. Markdown renderers hide HTML comments.
const promptMarker = "<!-- directchat:render-guidelines -->"

var renderPrompts = map[Language]string{
	LanguageEnglish: "You are a helpful assistant. Format answers in Markdown. " +
		"Put code in fenced code blocks tagged with the language. " +
		"Write inline math as $...$ and display math as $$...$$. " +
		"Do not output raw HTML. Answer in the language of the user.",
	LanguageChinese: "你是一个乐于助人的助手。请使用 Markdown 格式回答。" +
		"代码请放在带语言标识的代码块中。" +
		"行内公式使用 $...$，独立公式使用 $$...$$。" +
		"不要输出原始 HTML。请使用用户的语言回答。",
	LanguageJapanese: "あなたは親切なアシスタントです。回答は Markdown 形式で書いてください。" +
		"コードは言語名を付けたコードブロックに入れてください。" +
		"インライン数式は $...$、ディスプレイ数式は $$...$$ を使ってください。" +
		"生の HTML は出力しないでください。ユーザーの言語で回答してください。",
	LanguageKorean: "당신은 도움이 되는 어시스턴트입니다. 답변은 Markdown 형식으로 작성하세요. " +
		"코드는 언어를 표시한 코드 블록에 넣으세요. " +
		"인라인 수식은 $...$, 블록 수식은 $$...$$ 를 사용하세요. " +
		"원시 HTML은 출력하지 마세요. 사용자의 언어로 답변하세요.",
	LanguageRussian: "Вы полезный ассистент. Оформляйте ответы в Markdown. " +
		"Помещайте код в блоки кода с указанием языка. " +
		"Используйте $...$ для строчных формул и $$...$$ для выносных. " +
		"Не выводите сырой HTML. Отвечайте на языке пользователя.",
	LanguageArabic: "أنت مساعد مفيد. نسّق الإجابات باستخدام Markdown. " +
		"ضع الشيفرة في كتل شيفرة مع اسم اللغة. " +
		"اكتب الصيغ المضمنة بين $...$ والصيغ المستقلة بين $$...$$. " +
		"لا تُخرج HTML خامًا. أجب بلغة المستخدم.",
	LanguageHindi: "आप एक सहायक सहायक हैं। उत्तर Markdown प्रारूप में लिखें। " +
		"कोड को भाषा नाम वाले कोड ब्लॉक में रखें। " +
		"इनलाइन गणित के लिए $...$ और डिस्प्ले गणित के लिए $$...$$ का उपयोग करें। " +
		"कच्चा HTML आउटपुट न करें। उपयोगकर्ता की भाषा में उत्तर दें।",
}

// DetectLanguage guesses the language of text from its Unicode scripts. Kana
// wins over Han so Japanese text mixing kanji is not read as Chinese; text
// without a recognized script is English.
func DetectLanguage(text string) Language {
	var han, hangul, cyrillic, arabic, devanagari bool
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			return LanguageJapanese
		case unicode.Is(unicode.Hangul, r):
			hangul = true
		case unicode.Is(unicode.Han, r):
			han = true
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic = true
		case unicode.Is(unicode.Arabic, r):
			arabic = true
		case unicode.Is(unicode.Devanagari, r):
			devanagari = true
		}
	}

	switch {
	case hangul:
		return LanguageKorean
	case han:
		return LanguageChinese
	case cyrillic:
		return LanguageRussian
	case arabic:
		return LanguageArabic
	case devanagari:
		return LanguageHindi
	}
	return LanguageEnglish
}

// RenderPrompt returns the injected system prompt for language.
func RenderPrompt(language Language) string {
	prompt, ok := renderPrompts[language]
	if !ok {
		prompt = renderPrompts[LanguageEnglish]
	}
	return promptMarker + "\n" + prompt
}

// InjectSystemPrompt prepends the render-safety prompt, in the language the
// user typed the latest message in, when messages has no system message or force is set.
// A previously injected prompt is never duplicated and existing system
// messages are kept. The input slice is not modified.
func InjectSystemPrompt(messages []ai.Message, force bool) []ai.Message {
	hasSystem := false
	for _, message := range messages {
		if message.Role != ai.RoleSystem {
			continue
		}
		if strings.HasPrefix(message.TextContent(), promptMarker) {
			return messages
		}
		hasSystem = true
	}
	if hasSystem && !force {
		return messages
	}

	language := DetectLanguage(ai.LastUserQuestion(messages))
	result := make([]ai.Message, 0, len(messages)+1)
	result = append(result, ai.Message{Role: ai.RoleSystem, Content: RenderPrompt(language)})
	return append(result, messages...)
}
