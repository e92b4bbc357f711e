// Package gae provides a Cloud Datastore-backed AccountStore for App
// Engine deployments. Email and subject uniqueness are checked inside
// transactions against lookup entities keyed by the value itself, since
// Datastore has no unique indexes of its own.
package gae
