// Package widget binds one query widget to the shared query store.
//
// A Widget owns a public component id and, when it was built with a default
// query, a hidden companion id ("<id>__internal") that carries the default
// query. A custom query keeps the companion registered and watched but
// silences its pushes. The widget registers both ids, watches the
// dependency clause derived from its declared react expression, pushes its
// queries, and projects the store's state into a ViewModel for rendering.
//
// Lifecycle:
//
//	New      Unconstructed -> Constructed  register, watch, companion push
//	Mount    Constructed   -> Mounted      custom query push
//	Update   Mounted       -> Mounted      data callback, default re-push, re-watch
//	Unmount  any           -> Unmounted    unregister both ids, exactly once
//
// All change detection is structural (value.Equal, react.Equal); pushing a
// query that equals the last one is suppressed.
//
// Widgets are not safe for concurrent use. One host loop drives each widget;
// different widgets may share a store from different goroutines.
package widget
