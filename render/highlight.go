package render

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "monokai"

// Highlight writes src coloured for a 256-colour terminal. Unknown languages
// fall back to plain text and unknown styles to chroma's fallback style.
func Highlight(w io.Writer, src, language, style string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	if style == "" {
		style = DefaultStyle
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return err
	}
	return formatter.Format(w, styles.Get(style), iterator)
}
