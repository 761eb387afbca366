package i18n

import "net/http"

// Middleware injects a request-scoped localizer. The language comes
// from the lang query parameter, then the Accept-Language header, with
// defaultLang as the final fallback.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := make([]string, 0, 3)
			if l := r.URL.Query().Get("lang"); l != "" {
				prefs = append(prefs, l)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}
			prefs = append(prefs, defaultLang)

			ctx := WithLocalizer(r.Context(), NewLocalizer(prefs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
