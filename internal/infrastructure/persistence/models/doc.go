// Package models contains the GORM persistence models. They are separate from
// the domain entities, which carry no ORM tags; repositories convert between
// the two with the ToDomain / FromDomain mappers.
//
//   - base.go: BaseModel shared by the campaign tables
//   - integration.go: integrations, sync history, campaign external mappings
//   - canonical.go: canonical contacts, advertisers and opportunities
//   - campaign.go: campaigns, ad spaces, placements
package models
