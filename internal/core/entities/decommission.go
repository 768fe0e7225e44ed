package entities

import "github.com/JonMunkholm/tabingest/internal/core"

func init() {
	core.Register(core.EntityDefinition{
		Kind:  core.KindDecommission,
		Label: "Decommissioned assets",
		Fields: []core.FieldSpec{
			{Name: "serial", Normalizer: NormalizeSerial},
			{Name: "code", Normalizer: NormalizeSerial},
			text("decommission_reason"),
			{Name: "decommission_date", Normalizer: NormalizeDate},
			text("site"),
		},
		Signature:  []string{"decommission_reason", "decommission_date"},
		NaturalKey: "serial",
		Priority:   50,
	})
}
