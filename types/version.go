package types

// Version is the canonical project version.
// All commands report this single version.
const Version = "0.2.0"
