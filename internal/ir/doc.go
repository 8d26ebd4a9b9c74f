// Package ir provides the effect-tracked intermediate representation that
// sits between the purified syntax tree and the emitted shell text.
//
// This package contains type definitions and pure helpers only. It imports
// ast for source spans and nothing else internal, so every later stage
// (optimizer, verifier, emitter) can depend on it without cycles.
//
// Key design constraints:
//   - Every Node carries an EffectSet computed once by its constructor as the
//     union of its children's effects; nodes have no setters
//   - Values are plain immutable structs; arithmetic is a binary tree of
//     Add, Sub, Mul, Div and Mod over String and Variable leaves
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only
//     serialization used for content digests
package ir
