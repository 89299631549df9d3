// Package actors turns configured [[actor]] rows into validated voice
// profiles.
//
// A profile is a closed variant: native speech (HeyGen speaks the paragraph
// text with one of its own voices) or external speech (ElevenLabs
// synthesizes the audio first and the avatar lip-syncs to the uploaded
// asset). Validation happens once, when the set is built from configuration,
// so render code can branch on the mode without re-checking field
// combinations. Looking up a name that has no profile is the recoverable
// unknown-actor condition handled by the renderer, not an error here.
package actors
