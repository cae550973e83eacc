// Package goshape provides:
//
// - A closed, immutable schema model (primitives, literals, arrays, tuples, objects, records,
//   unions, intersections, classes, recursive schemas)
// - A pure validator that answers whether a value conforms to a schema (IsValid)
// - A static schema check (Check/Compile) that rejects misuse such as a recursion marker
//   outside any Recursive schema
// - Token-stream input sources (JSON, YAML) with duplicate-key/depth/size enforcement that
//   decode into the value model the validator understands
//
// Design policy:
// - Keep only public APIs in the root package; put token plumbing under internal/.
// - Place drivers under source/, the schema document format under schemadoc/, and the CLI
//   under cmd/goshape.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	entry := goshape.Recursive(goshape.Union(
//		goshape.Object(goshape.Fields{"type": goshape.Literal("File"), "content": goshape.String()}),
//		goshape.Object(goshape.Fields{"type": goshape.Literal("Folder"), "items": goshape.Array(goshape.Recursion())}),
//	))
//	v, err := goshape.Decode(ctx, goshape.JSONBytes(data), goshape.DefaultDecodeOpt())
//	ok := goshape.IsValid(v, entry)
package goshape
