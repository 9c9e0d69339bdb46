// Package ui embeds the static web frontend served by the API.
package ui

import "embed"

//go:embed index.html index.js
var Files embed.FS
