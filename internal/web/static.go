package web

import (
	"embed"
)

// staticFiles holds the embedded panel page and assets.
//
//go:embed static/*
var staticFiles embed.FS
