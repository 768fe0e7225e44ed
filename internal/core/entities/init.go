// Package entities registers the canonical entity kinds with the core
// registry. Import this package to make the kinds available.
package entities

// Each file registers its kind from init().
