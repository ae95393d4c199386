package runtime

import (
	"context"
	"strings"
	"unicode"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/commentgen/internal/logger"
)

// makeHumanizeFn creates the "humanize" host function.
//
// humanize(identifier) → string
//
// Splits camelCase, PascalCase, snake_case and kebab-case identifiers into
// lower-case words: humanize("parseHTTPHeader") == "parse http header".
func makeHumanizeFn() *object.Builtin {
	return object.NewBuiltin("humanize", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("humanize", 1, len(args))
		}
		s, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("humanize: expected string, got %s", args[0].Type())
		}
		return object.NewString(Humanize(s.Value()))
	})
}

// Humanize splits an identifier into lower-case words.
func Humanize(ident string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '$' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// Break before an upper-case letter that follows a lower-case
			// letter or digit, and before the last capital of an acronym.
			if !unicode.IsUpper(prev) || nextLower {
				flush()
			}
		case unicode.IsDigit(r) && len(cur) > 0 && !unicode.IsDigit(runes[i-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return strings.Join(words, " ")
}

// logObject provides log.info/warn/error methods for scripts.
type logObject struct {
	log    *zap.SugaredLogger
	script string
}

func (l *logObject) Info(msg string) {
	l.log.Infow(msg, logger.FieldScript, l.script)
}

func (l *logObject) Warn(msg string) {
	l.log.Warnw(msg, logger.FieldScript, l.script)
}

func (l *logObject) Error(msg string) {
	l.log.Errorw(msg, logger.FieldScript, l.script)
}
