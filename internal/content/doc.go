// Package content is the typed model of the blog's store objects and the
// access layer over them.
//
// The core pieces are:
//   - [Post], [Author], [Category]: immutable values decoded from store JSON.
//     Top-level object fields are read leniently; metadata is decoded
//     strictly and unknown metadata keys are rejected.
//   - [Object] and [DecodeObject]: a closed union over the three types,
//     selected by the object's "type" field.
//   - [Store]: reads published content and forwards post mutations. A
//     not-found answer from the store becomes an empty result; any other
//     failure becomes an *[Error].
package content
