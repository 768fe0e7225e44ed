// Package core provides the business logic for tabular ingestion.
//
// It turns spreadsheets and delimited files of unknown layout into canonical
// records. The package has no UI or transport dependencies and is driven by
// the ingest CLI and by tests.
//
// # Pipeline
//
// One call to [Service.Import] runs these steps:
//
//  1. [ReadFile] turns each file into raw tables (one per sheet). Merged
//     workbook cells are expanded and text encodings are detected.
//  2. [SplitSections] optionally cuts a sheet holding several stacked
//     tables into one table per section label.
//  3. [NormalizeTable] detects the header row, drops leading index columns
//     and produces rows keyed by normalized labels.
//  4. Tables with identical label sets are grouped and mapped once by the
//     [Mapper]: alias table, then an optional [Suggester], then keyword
//     heuristics, then caller overrides.
//  5. [Classify] picks the entity kind whose signature fields best match.
//  6. Rows with unmapped non-empty cells, or of unknown kind, are staged
//     with their full original payload.
//  7. [Deduplicate] folds rows sharing a natural key within the batch.
//  8. Clean records are upserted through the [Store]. New assets without a
//     code receive one from [Store.NextIdentifier].
//
// Every input row ends up inserted, updated, staged, errored or folded as a
// duplicate, and the [ImportSession] reports each tally.
//
// # Entity Registry
//
// Entity kinds are registered at init time using [Register]:
//
//	core.Register(core.EntityDefinition{
//	    Kind:       core.KindEmployee,
//	    Fields:     []core.FieldSpec{{Name: "cedula", Normalizer: NormalizeCedula}},
//	    Signature:  []string{"cedula", "full_name"},
//	    NaturalKey: "cedula",
//	    Priority:   30,
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - ING001-ING007: Ingestion errors (keys, identifiers, limits)
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - FILE001-FILE005: File errors (size, format, readability)
package core
