package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the negotiated language.Tag in the request context.
var LocaleKey = localeContextKey{}

// SupportedLocales lists the languages error messages are written in.
var SupportedLocales = []language.Tag{language.English, language.BrazilianPortuguese}

var localeMatcher = language.NewMatcher(SupportedLocales)

// I18N negotiates the response language from X-Locale or Accept-Language.
func I18N(fallback language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LocaleKey, detectLocale(r, fallback))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback language.Tag) language.Tag {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, ok := matchLocale(v); ok {
			return tag
		}
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tag, ok := matchLocale(v); ok {
			return tag
		}
	}
	return fallback
}

func matchLocale(header string) (language.Tag, bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.Und, false
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return language.Und, false
	}
	return SupportedLocales[idx], true
}

// LocaleFromContext returns the negotiated language, English when unset.
func LocaleFromContext(ctx context.Context) language.Tag {
	if v, ok := ctx.Value(LocaleKey).(language.Tag); ok {
		return v
	}
	return language.English
}
