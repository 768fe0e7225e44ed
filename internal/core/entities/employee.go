package entities

import "github.com/JonMunkholm/tabingest/internal/core"

func init() {
	core.Register(core.EntityDefinition{
		Kind:  core.KindEmployee,
		Label: "Employees",
		Fields: []core.FieldSpec{
			{Name: "cedula", Normalizer: NormalizeCedula},
			text("full_name"),
			{Name: "email", Normalizer: NormalizeEmail},
			text("position"),
			text("department"),
			text("site"),
		},
		Signature:  []string{"cedula", "full_name", "position", "department"},
		NaturalKey: "cedula",
		Priority:   30,
	})
}
