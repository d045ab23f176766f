package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

const wildTypeAllele = "*1"

// DiplotypeResolverService reduces a gene's ordered variant set into a
// canonical two-allele genotype string. It has no failure mode: absence of
// information degrades to the wild-type assumption.
type DiplotypeResolverService struct {
	logger *logrus.Logger
}

// NewDiplotypeResolverService creates a new diplotype resolver.
func NewDiplotypeResolverService(logger *logrus.Logger) *DiplotypeResolverService {
	return &DiplotypeResolverService{logger: logger}
}

// Resolve reduces the variant set with explicit precedence:
//
//  1. no variants, or none with a star-allele label: wild type *1/*1
//  2. one distinct label observed twice or more: homozygous X/X
//  3. one distinct label observed once: heterozygous *1/X
//  4. two or more distinct labels: the two lowest-ranked labels, rank-ordered
//
// The result is canonical: the same unordered allele pair yields one string
// regardless of file order.
func (s *DiplotypeResolverService) Resolve(variants []domain.Variant) domain.Diplotype {
	counts := make(map[string]int)
	var order []string
	for _, v := range variants {
		label := strings.TrimSpace(v.StarAllele)
		if label == "" {
			continue
		}
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	switch len(order) {
	case 0:
		return domain.DiplotypeWildType
	case 1:
		label := order[0]
		if label == wildTypeAllele || counts[label] >= 2 {
			if label == wildTypeAllele {
				return domain.DiplotypeWildType
			}
			return joinAlleles(label, label)
		}
		return joinAlleles(wildTypeAllele, label)
	default:
		sortByAlleleRank(order)
		return joinAlleles(order[0], order[1])
	}
}

// NormalizeDiplotype rewrites a diplotype into rank order. It is idempotent
// and leaves the Unknown sentinel and malformed strings untouched, so it is
// safe to apply to any upstream value.
func NormalizeDiplotype(d domain.Diplotype) domain.Diplotype {
	first, second, ok := d.Alleles()
	if !ok {
		return d
	}
	return joinAlleles(first, second)
}

// joinAlleles forms the canonical lower/higher diplotype string.
func joinAlleles(a, b string) domain.Diplotype {
	if alleleLess(b, a) {
		a, b = b, a
	}
	return domain.Diplotype(fmt.Sprintf("%s/%s", a, b))
}

// sortByAlleleRank orders labels by numeric portion ascending, breaking ties
// lexicographically on the full label (*3A before *3B). Insertion sort: the
// slice holds at most a handful of distinct alleles.
func sortByAlleleRank(labels []string) {
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && alleleLess(labels[j], labels[j-1]); j-- {
			labels[j], labels[j-1] = labels[j-1], labels[j]
		}
	}
}

// alleleLess reports whether label a ranks before label b.
func alleleLess(a, b string) bool {
	na, aNumeric := alleleNumber(a)
	nb, bNumeric := alleleNumber(b)
	switch {
	case aNumeric && bNumeric && na != nb:
		return na < nb
	case aNumeric != bNumeric:
		// Labels with a numeric portion rank before purely symbolic ones.
		return aNumeric
	default:
		return a < b
	}
}

// alleleNumber extracts the leading numeric portion of a star-allele label,
// e.g. *17 -> 17 and *3A -> 3.
func alleleNumber(label string) (int, bool) {
	trimmed := strings.TrimPrefix(label, "*")
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
