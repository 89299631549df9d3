// Package script parses plain-text scripts into a renderable document tree
// and computes the content digests that address every cached artifact.
//
// A script is a sequence of blocks separated by blank lines. A standalone
// self-closing <actor name="..."/> block switches the speaking actor; any
// other well-formed markup block opens a new scene with that fragment as its
// overlay; everything else is paragraph text, optionally prefixed by an
// inline actor directive. Malformed markup degrades to plain text and never
// aborts a parse.
//
// Digests are MD5 over normalized content: paragraph identity is
// (actor, NFC text with whitespace runs collapsed); scene identity is the
// canonical overlay serialization plus the ordered paragraph digests.
// Reflowing a paragraph or reordering overlay attributes never invalidates
// a cache entry; changing a word always does.
package script
