// Package tui implements the interactive terminal session for wordfind.
//
// A Session owns a tcell screen and a ranking engine. Every edit of the
// query line triggers an asynchronous ranking update; results come back as
// custom tcell events so the session has a single event loop, and only the
// newest sequence number is ever rendered.
package tui
