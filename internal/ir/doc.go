// Package ir provides the JSON value model shared by every other package.
//
// JSON:API attributes and meta members are open-ended, so they are carried
// as a sealed Value union instead of fixed structs. ir imports nothing
// internal; all other internal packages import ir.
//
// Key design constraints:
//   - Values are treated as immutable once built. Object.With / Object.Merge
//     return new maps; nothing in this module writes into a map it received.
//   - Numbers that fit int64 decode as Int, everything else as Float.
//   - Object iteration order is undefined; use SortedKeys for determinism.
//   - Canonical encoding (MarshalCanonical) sorts keys by UTF-16 code units
//     and NFC-normalizes strings so equal states hash equally.
package ir
