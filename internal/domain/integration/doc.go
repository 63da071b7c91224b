// Package integration contains the Integration bounded context.
// This context keeps local sales records in step with external CRM and
// ad-server platforms (Salesforce, HubSpot, Pipedrive, VTEX, Kevel).
//
// Key concepts:
//   - Integration: a company's connection to one provider, root of all derived records
//   - ProviderAdapter: port implemented once per provider for entity syncs
//   - CampaignPlatform / ForecastPlatform: optional provider capabilities
//   - Canonical records: local opportunities, contacts and advertisers keyed by NaturalKey
//   - SyncHistoryRecord: append-only outcome of one sync run
//   - CampaignExternalMapping: local campaign to external campaign link used for re-push
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
