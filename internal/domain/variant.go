package domain

// Variant represents one called genetic position relevant to pharmacogenomics,
// extracted from a single qualifying row of the input file. Variants are value
// objects: created once during extraction and never mutated.
type Variant struct {
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	CallID     string `json:"call_id"`
	Reference  string `json:"reference"`
	Alternate  string `json:"alternate"`
	Gene       string `json:"gene"`        // gene symbol, uppercased
	RSID       string `json:"rsid"`        // reference-SNP identifier
	StarAllele string `json:"star_allele"` // empty if the source annotation lacks one
}

// ExtractionResult is the output of the variant extractor: the flat variant
// sequence in file order plus the per-gene grouping. Success is true iff a
// header line was found; an unparseable file yields an empty result, not an error.
type ExtractionResult struct {
	Success        bool                 `json:"success"`
	TotalVariants  int                  `json:"total_variants"`
	Variants       []Variant            `json:"variants"`
	VariantsByGene map[string][]Variant `json:"variants_by_gene"`
	TargetGenes    []string             `json:"target_genes"`
}

// VariantsFor returns the ordered variant set for one gene symbol.
// The returned slice preserves input file order.
func (r *ExtractionResult) VariantsFor(gene string) []Variant {
	if r.VariantsByGene == nil {
		return nil
	}
	return r.VariantsByGene[gene]
}

// RSIDsFor returns the reference-SNP identifiers detected for one gene,
// in file order, skipping variants without an rsID.
func (r *ExtractionResult) RSIDsFor(gene string) []string {
	variants := r.VariantsFor(gene)
	ids := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.RSID != "" {
			ids = append(ids, v.RSID)
		}
	}
	return ids
}
