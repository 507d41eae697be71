// Package web embeds the HTML templates and static assets served by the
// ledger UI.
package web

import "embed"

// TemplatesFS holds the page and HTMX partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and client script.
//
//go:embed static/*
var StaticFS embed.FS
