// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"bytes"
	"html/template"
	"net/http"
)

const pageTmpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <main>
    <h1 id="title">{{.Title}}</h1>
    <p id="message">{{.Message}}</p>
    {{- if .Reason}}
    <p id="reason">{{.Reason}}</p>
    {{- end}}
    <a id="home" href="/">Return home</a>
  </main>
</body>
</html>
`

var page = template.Must(template.New("page").Parse(pageTmpl))

type pageData struct {
	Title   string
	Message string
	Reason  string
}

// LogoutSuccess creates the handler for the page shown after a completed
// logout.
func LogoutSuccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, http.StatusOK, pageData{
			Title:   "Signed out",
			Message: "You have been signed out.",
		})
	}
}

// LogoutError creates the handler for the page shown after a rejected logout
// callback.  The page shows the request's "reason" query parameter.
func LogoutError() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reason := r.URL.Query().Get("reason")
		if reason == "" {
			reason = "unknown error"
		}
		writePage(w, http.StatusOK, pageData{
			Title:   "Sign out failed",
			Message: "We couldn't complete your sign out.",
			Reason:  reason,
		})
	}
}

func writePage(w http.ResponseWriter, statusCode int, d pageData) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, d); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}
