package entities

import "github.com/JonMunkholm/tabingest/internal/core"

func init() {
	core.Register(core.EntityDefinition{
		Kind:  core.KindLicense,
		Label: "Software licenses",
		Fields: []core.FieldSpec{
			{Name: "email", Normalizer: NormalizeEmail},
			text("license_type"),
			text("license_key"),
			{Name: "expiration_date", Normalizer: NormalizeDate},
			text("assigned_user"),
		},
		Signature:  []string{"license_type", "license_key", "expiration_date"},
		NaturalKey: "email",
		Priority:   40,
	})
}
