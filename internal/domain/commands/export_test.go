package commands

// ResolveRoots exports resolveRoots for testing.
var ResolveRoots = resolveRoots //nolint:gochecknoglobals // test export
