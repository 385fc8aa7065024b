package storysite

import "embed"

// EmbeddedAssets contains the client assets shipped with the server:
// router.js, bridge.js and the default entry document index.html.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
