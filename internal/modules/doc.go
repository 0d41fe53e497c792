// Package modules resolves module specifiers named by catalogs and plugin
// manifests to loaded modules.
//
// A specifier is either bare ("@sequencer/library-handlers") or a path
// ("./handlers.tengo"). Bare specifiers are looked up in a static table of
// loaders that plugins register at startup; anything the table does not know
// is offered to the dynamic loaders (Tengo scripts read through the source
// chain). A specifier nobody can load fails with ErrLoaderNotFound.
package modules
