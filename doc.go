// Package tiktoken provides a pure Go implementation of OpenAI's tiktoken
// byte-pair-encoding tokenizer.
//
// It mirrors the upstream Rust/Python encodings (r50k_base, p50k_base,
// p50k_edit, cl100k_base, o200k_base, and their chat-markup im
// variants): load a rank file, build a named Encoding, and call Encode,
// Decode, or EncodeWithUnstable against it. The merge engine and regex
// pre-tokenizer live in the tokenizer subpackage; this package adds the
// special-token policy, the named-encoding registry, and vocabulary
// validation on top.
package tiktoken
