package entities

import "github.com/JonMunkholm/tabingest/internal/core"

func init() {
	registerAssetIndividual()
	registerAssetGrouped()
}

func registerAssetIndividual() {
	core.Register(core.EntityDefinition{
		Kind:  core.KindAssetIndividual,
		Label: "Individual assets",
		Fields: []core.FieldSpec{
			{Name: "code", Normalizer: NormalizeSerial},
			{Name: "serial", Normalizer: NormalizeSerial},
			text("brand"),
			text("model"),
			text("processor"),
			text("ram"),
			text("storage"),
			text("os"),
			text("site"),
			text("city"),
			text("category"),
			text("assigned_user"),
			text("area"),
			text("status"),
			{Name: "purchase_date", Normalizer: NormalizeDate},
			{Name: "value", Normalizer: NormalizeNumber},
		},
		Signature:  []string{"serial", "brand", "model", "processor", "ram", "storage", "os"},
		NaturalKey: "serial",
		Priority:   10,
		Asset:      true,
	})
}

// Grouped assets are counted stock (chairs, cables). One record per
// description and site; the allocated code is an identifier, not the key.
func registerAssetGrouped() {
	core.Register(core.EntityDefinition{
		Kind:  core.KindAssetGrouped,
		Label: "Grouped assets",
		Fields: []core.FieldSpec{
			{Name: "code", Normalizer: NormalizeSerial},
			text("description"),
			{Name: "quantity", Normalizer: NormalizeNumber},
			text("category"),
			text("site"),
			text("area"),
			text("brand"),
			text("status"),
		},
		Signature:     []string{"description", "quantity"},
		NaturalKey:    "description",
		KeyQualifiers: []string{"site"},
		Priority:      20,
		Asset:         true,
	})
}
