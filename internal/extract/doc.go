// Package extract reads listing entries and film details out of wiki-style
// markup with goquery. Every lookup reports presence explicitly; a missing
// node becomes a skipped row or the film.Unknown sentinel, never a panic.
package extract
