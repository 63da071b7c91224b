package models

// All lists every persistence model, in foreign key order
func All() []any {
	return []any{
		&IntegrationModel{},
		&SyncHistoryModel{},
		&CanonicalContactModel{},
		&CanonicalAdvertiserModel{},
		&CanonicalOpportunityModel{},
		&CampaignModel{},
		&AdSpaceModel{},
		&CampaignPlacementModel{},
		&CampaignExternalMappingModel{},
	}
}
