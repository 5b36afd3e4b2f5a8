// Package binder fills request structs from form bodies, query strings and
// chi path parameters using `form`, `file`, `query` and `path` struct tags.
// A binder that has nothing to read returns ErrBinderNotApplicable so that
// several binders can be chained on one handler.
package binder
