// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds the server-rendered page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds stylesheets and images.
//
//go:embed static/*
var StaticFS embed.FS
