package mediumblog

import "embed"

// EmbeddedAssets contains the static assets shipped with the blog:
// blog.css, blog.js and logo.svg.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
