// Package app assembles the application context: one explicit object
// holding the medium, the entity store, and the repositories, built
// once from configuration and passed to collaborators by reference.
// There are no package-level singletons; everything that needs the
// store receives it through this context.
package app
