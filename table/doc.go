// Package table holds the in-memory tables of an amplicon study and the
// readers that build them from flat files.
//
// Three tables describe one study:
//
//   - AbundanceTable: sample × taxon read counts (an OTU table)
//   - TaxonomyTable: taxon id → rank labels (Kingdom, Phylum, ...)
//   - MetadataTable: sample id → named attributes
//
// Merge joins them on sample id and taxon id into a Dataset whose three
// tables are aligned index by index: sample i of the abundance table is
// record i of the metadata table, and taxon j is lineage j of the taxonomy.
// Every downstream stage relies on that alignment.
//
// All tables are immutable after construction. Filtering, grouping and
// taxon removal return new values and never touch their receiver, so a
// Dataset can be shared freely between goroutines.
//
// # Reading Files
//
//	abund, err := table.OpenAbundance("final.opti_mcc.shared")
//	tax, err := table.OpenTaxonomy("final.opti_mcc.0.03.cons.taxonomy")
//	meta, err := table.OpenMetadata("samples.csv")
//	ds, err := table.Merge(abund, tax, meta)
//
// Inputs ending in .gz, .zst, .s2 or .lz4 are decompressed transparently.
//
// # Filtering
//
//	ds, err = ds.Filter(
//	    table.Not(table.MetadataEquals("Type", "blank")),
//	    table.Not(table.RankEquals("Class", "Chloroplast")),
//	    table.Not(table.RankEquals("Family", "Mitochondria")),
//	)
package table
