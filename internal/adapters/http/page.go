package httpadapter

import _ "embed"

// indexPage is the single-page chat UI: upload a PNG/JPG of a network
// diagram, ask questions, read the answers. It talks to the JSON API on
// the same origin.
//
//go:embed index.html
var indexPage []byte
