package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func webhookConfigHandlers() repository.ModelHandlers[*webhookConfigRecord] {
	return repository.ModelHandlers[*webhookConfigRecord]{
		NewRecord: func() *webhookConfigRecord {
			return &webhookConfigRecord{}
		},
		GetID: func(record *webhookConfigRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *webhookConfigRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *webhookConfigRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func webhookFireHandlers() repository.ModelHandlers[*webhookFireRecord] {
	return repository.ModelHandlers[*webhookFireRecord]{
		NewRecord: func() *webhookFireRecord {
			return &webhookFireRecord{}
		},
		GetID: func(record *webhookFireRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *webhookFireRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *webhookFireRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(raw string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
