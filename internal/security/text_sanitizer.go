package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はDisney APIから受け取ったテキストを表示用に整えるインターフェース。
type TextSanitizerService interface {
	// Text はマークアップを除去したプレーンテキストを返す。
	Text(raw string) string
	// Texts はスライスの各要素にTextを適用し、空になった要素を取り除く。
	Texts(raw []string) []string
	// ImageURL は絶対http/https URLのみを通過させ、それ以外は空文字列を返す。
	ImageURL(raw string) string
}

// TextSanitizer はbluemondayのStrictPolicyで全タグを除去する。
// キャラクター名や作品名に混入したHTMLがテンプレートで文字列として表示されるのを防ぐ。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Text はタグを除去し、前後の空白を取り除いたテキストを返す。
// StrictPolicyはエンティティをエスケープして返すため、テンプレートでの二重エスケープを避けるよう戻す。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// Texts はスライスの各要素をサニタイズする。元のスライスは変更しない。
func (s *TextSanitizer) Texts(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := s.Text(r); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ImageURL は画像URLを検証する。
func (s *TextSanitizer) ImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}

var _ TextSanitizerService = (*TextSanitizer)(nil)
