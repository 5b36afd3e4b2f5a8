package handler

import (
	"encoding/json"
	"net/http"
)

type redirectResponse struct {
	url     string
	replace bool
}

func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return WriteRedirect(w, r, rr.url, rr.replace)
}

// Redirect navigates to url with 303 See Other, or via an SSE script for
// Datastar requests. The current page stays in history.
func Redirect(url string) Response {
	return redirectResponse{url: url}
}

// RedirectReplace navigates to url without leaving the current location in
// history. Plain requests get a 303 with no body; Datastar requests get a
// location.replace script.
func RedirectReplace(url string) Response {
	return redirectResponse{url: url, replace: true}
}

// WriteRedirect writes a redirect directly. Middleware uses it where there is
// no typed handler to return a Response from.
func WriteRedirect(w http.ResponseWriter, r *http.Request, url string, replace bool) error {
	if IsDataStar(r) {
		sse := NewSSE(w, r)
		if !replace {
			return sse.Redirect(url)
		}
		return sse.ExecuteScript(ReplaceLocationScript(url))
	}
	w.Header().Set("Location", url)
	w.WriteHeader(http.StatusSeeOther)
	return nil
}

// ReplaceLocationScript returns the browser script that replaces the current
// history entry with url.
func ReplaceLocationScript(url string) string {
	quoted, _ := json.Marshal(url)
	return "window.location.replace(" + string(quoted) + ")"
}
