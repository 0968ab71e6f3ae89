// Package model builds metadata trees whose every mutation is checked against a type
// registry and its constraint engine.
package model
