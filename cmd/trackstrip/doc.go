// Package main hosts the trackstrip CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, wires the mkvmerge
// client, history store and run lock, and hands files to the stripper,
// converter or watcher. Keep this package lean: behaviour lives in the
// internal packages and is only surfaced here.
package main
