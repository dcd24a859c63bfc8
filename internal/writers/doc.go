// Package writers owns the output side of a run: buffered, optionally
// compressed sinks that receive record text verbatim.
//
// Design:
//   • Sinks never parse or reformat records; bytes go out exactly as read.
//   • Compression is chosen by output suffix through the codec registry.
//   • Callers close every sink; Close flushes, finishes the codec, then the file.
package writers
