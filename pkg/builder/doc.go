// Package builder turns configuration nodes into objects.
//
// A node is a tree of mappings, sequences and scalars, usually a make:
// template with URI parameters overlaid. Mappings with a "class" key are
// handed to the Factory registered for that class; StructFactory covers the
// common case of decoding properties into a validated struct:
//
//	type Button struct {
//		Label string `prop:"label" validate:"required"`
//		Width int    `prop:"width"`
//	}
//
//	b := builder.New(builder.WithFactory("button", builder.NewStructFactory[Button]()))
//
// Build is called by the make: and file: schemes with the handler to use
// for nested references, so URIs inside a template resolve lazily, at build
// time, with the scheme context of the place the template came from.
package builder
