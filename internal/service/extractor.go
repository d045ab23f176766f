package service

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// Column names resolved from the #CHROM header line. Header names are
// case-insensitive; the column order is whatever the file declares.
const (
	colChrom = "CHROM"
	colPos   = "POS"
	colID    = "ID"
	colRef   = "REF"
	colAlt   = "ALT"
	colInfo  = "INFO"
)

// ExtractorService parses tab-delimited variant-call text and keeps only
// rows annotated with a gene from the fixed pharmacogene allow-list.
type ExtractorService struct {
	logger      *logrus.Logger
	targetGenes map[string]bool
}

// NewExtractorService creates a new variant extractor over the fixed
// target-gene allow-list.
func NewExtractorService(logger *logrus.Logger) *ExtractorService {
	genes := make(map[string]bool, len(targetGenes))
	for _, g := range targetGenes {
		genes[g] = true
	}
	return &ExtractorService{
		logger:      logger,
		targetGenes: genes,
	}
}

// TargetGenes returns the allow-list in its canonical order.
func (s *ExtractorService) TargetGenes() []string {
	out := make([]string, len(targetGenes))
	copy(out, targetGenes)
	return out
}

// ValidateContent is the advisory structural pre-check run before full
// extraction. It fails only on missing structural markers: empty or
// non-text content, or the absence of a #CHROM header line. It never
// alters parse results.
func (s *ExtractorService) ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyContent
	}
	if !utf8.ValidString(content) || strings.ContainsRune(content, '\x00') {
		return domain.ErrBinaryContent
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#CHROM") {
			return nil
		}
	}
	return domain.ErrMissingHeader
}

// Extract parses the raw file content into gene-grouped variants.
// It never returns an error: a file without a header line yields
// Success=false and an empty result, and malformed rows are skipped.
func (s *ExtractorService) Extract(content string) *domain.ExtractionResult {
	result := &domain.ExtractionResult{
		Variants:       []domain.Variant{},
		VariantsByGene: make(map[string][]domain.Variant),
		TargetGenes:    s.TargetGenes(),
	}

	var columns map[string]int
	skipped := 0

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			continue
		}
		// Double-comment lines are file metadata.
		if strings.HasPrefix(line, "##") {
			continue
		}
		if columns == nil {
			if strings.HasPrefix(line, "#CHROM") {
				columns = parseHeader(line)
				result.Success = true
			}
			// Data before the header line has no column mapping; skip it.
			continue
		}

		variant, ok := s.parseRow(line, columns)
		if !ok {
			skipped++
			continue
		}

		result.Variants = append(result.Variants, variant)
		result.VariantsByGene[variant.Gene] = append(result.VariantsByGene[variant.Gene], variant)
	}

	result.TotalVariants = len(result.Variants)

	if !result.Success {
		s.logger.Warn("No #CHROM header line found; returning empty extraction result")
		return result
	}

	s.logger.WithFields(logrus.Fields{
		"total_variants": result.TotalVariants,
		"genes":          len(result.VariantsByGene),
		"rows_skipped":   skipped,
	}).Info("Variant extraction completed")

	return result
}

// parseHeader builds the uppercased column-name -> index mapping from the
// #CHROM line. The leading '#' on the first column is not part of the name.
func parseHeader(line string) map[string]int {
	columns := make(map[string]int)
	for i, name := range strings.Split(line, "\t") {
		name = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "#")))
		if name == "" {
			continue
		}
		columns[name] = i
	}
	return columns
}

// parseRow turns one data line into a Variant. ok is false when the row
// references columns beyond its field count, lacks a gene annotation, or
// its gene is outside the allow-list.
func (s *ExtractorService) parseRow(line string, columns map[string]int) (domain.Variant, bool) {
	fields := strings.Split(line, "\t")

	field := func(name string) (string, bool) {
		idx, declared := columns[name]
		if !declared || idx >= len(fields) {
			return "", false
		}
		return strings.TrimSpace(fields[idx]), true
	}

	info, ok := field(colInfo)
	if !ok {
		return domain.Variant{}, false
	}

	annotations := parseAnnotations(info)

	gene := strings.ToUpper(annotations["gene"])
	if gene == "" || !s.targetGenes[gene] {
		return domain.Variant{}, false
	}

	chrom, ok := field(colChrom)
	if !ok {
		return domain.Variant{}, false
	}
	ref, ok := field(colRef)
	if !ok {
		return domain.Variant{}, false
	}
	alt, ok := field(colAlt)
	if !ok {
		return domain.Variant{}, false
	}
	callID, ok := field(colID)
	if !ok {
		return domain.Variant{}, false
	}

	var position int64
	if posField, ok := field(colPos); ok {
		if pos, err := strconv.ParseInt(posField, 10, 64); err == nil {
			position = pos
		}
	}

	return domain.Variant{
		Chromosome: chrom,
		Position:   position,
		CallID:     callID,
		Reference:  ref,
		Alternate:  alt,
		Gene:       gene,
		RSID:       resolveRSID(annotations, callID),
		StarAllele: annotations["star"],
	}, true
}

// parseAnnotations parses the semicolon-separated key=value annotation field
// into a flat lowercase-key map. Pairs with a missing key or value are
// dropped silently.
func parseAnnotations(info string) map[string]string {
	annotations := make(map[string]string)
	for _, pair := range strings.Split(info, ";") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		annotations[key] = value
	}
	return annotations
}

// resolveRSID picks the reference-SNP id: the annotation's rs/rsid key wins
// over the row's ID column; first non-empty value is used. The VCF missing
// marker "." counts as empty.
func resolveRSID(annotations map[string]string, callID string) string {
	for _, candidate := range []string{annotations["rs"], annotations["rsid"], callID} {
		if candidate != "" && candidate != "." {
			return candidate
		}
	}
	return ""
}

// Summary returns a one-line description of an extraction result,
// used in request logging.
func Summary(res *domain.ExtractionResult) string {
	return fmt.Sprintf("parsed=%t variants=%d genes=%d",
		res.Success, res.TotalVariants, len(res.VariantsByGene))
}
