// Package proxy maps value classes to proxy classes that adapt resolved
// configuration values before they are injected into their destination.
//
// # Classes
//
// Go has no class inheritance, so a value's class chain comes from one of
// two places:
//
//   - Values implementing Classifier declare their own *Class, including
//     the parent chain.
//   - Other values get a class derived from their Go type. The class name
//     is the package path and type name ("example.com/ui.Button"), and the
//     parent is the type of the first embedded struct field, so embedding
//     plays the role of subclassing.
//
// # Lookup and memoization
//
// Registry.Lookup first checks the entry cached under the value's exact
// class name. On a miss it walks the parent chain; the first ancestor with
// a proxy is memoized under the original class name. When no ancestor has
// a proxy a negative entry is memoized instead.
//
// Memoized entries are never revisited. A proxy registered for a parent
// class after a subclass was negatively cached does not apply to that
// subclass. Call Reset to start over.
//
// # Thread Safety
//
// A Registry is safe for concurrent use. Registration is last-writer-wins;
// two lookups racing to memoize the same class store the same entry.
package proxy
