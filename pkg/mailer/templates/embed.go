// Package templates holds the built-in email templates.
package templates

import "embed"

// FS contains <template>.md, <template>.txt and layouts/base.{html,txt}.
//
//go:embed *.md *.txt layouts/*
var FS embed.FS
