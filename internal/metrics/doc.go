// Package metrics exposes coordinator activity as Prometheus metrics.
//
// A Collector is passed to syncer.Options as the Observer. The editor serves
// the registry on an optional metrics listener; the dev server has its own
// request metrics in package server.
package metrics
