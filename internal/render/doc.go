// Package render is the pipeline core. It walks a parsed script document,
// renders each scene through the provider clients and the compositor with
// every provider call gated by the artifact cache, and assembles the final
// movie. Paragraph failures drop the paragraph, scene failures drop the
// scene, and only configuration problems abort a run.
package render
