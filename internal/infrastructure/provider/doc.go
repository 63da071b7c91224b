// Package provider contains the adapters for external CRM and ad-server
// platforms, the adapter registry, and the credential resolver.
//
// Each adapter fetches every page of an entity class and hands each page to
// an integration.RecordReconciler, so provider code only deals with wire
// shapes and stage vocabularies.
package provider
